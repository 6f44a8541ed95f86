package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/GymTrack/internal/auth"
	pkgconfig "github.com/utafrali/GymTrack/pkg/config"
	"github.com/utafrali/GymTrack/pkg/database"
	"github.com/utafrali/GymTrack/pkg/tracing"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Revocation list backends.
const (
	RevocationPostgres = "postgres"
	RevocationRedis    = "redis"
	RevocationMemory   = "memory"
)

// Notification backends.
const (
	NotifyLog     = "log"
	NotifySMTP    = "smtp"
	NotifyMailgun = "mailgun"
	NotifyKafka   = "kafka"
)

// Postgres holds the database connection settings.
type Postgres struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"gymtrack"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"gymtrack"`
	DBName   string `env:"POSTGRES_DB" envDefault:"gymtrack"`
	SSLMode  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"20"`
	MinConns int32  `env:"POSTGRES_MIN_CONNS" envDefault:"2"`

	// SlowQueryThreshold enables slow query logging when positive.
	SlowQueryThreshold time.Duration `env:"POSTGRES_SLOW_QUERY_THRESHOLD" envDefault:"0s"`
}

// SMTP holds outbound mail server settings.
type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	// ImplicitTLS dials TLS directly (port 465) instead of STARTTLS.
	ImplicitTLS bool `env:"SMTP_IMPLICIT_TLS" envDefault:"false"`
}

// Mailgun holds Mailgun API settings.
type Mailgun struct {
	Domain  string `env:"MAILGUN_DOMAIN"`
	APIKey  string `env:"MAILGUN_API_KEY"`
	APIBase string `env:"MAILGUN_API_BASE"`
}

// Breaker configures the circuit breaker around outbound mail.
type Breaker struct {
	Timeout      time.Duration `env:"NOTIFY_BREAKER_TIMEOUT" envDefault:"30s"`
	Interval     time.Duration `env:"NOTIFY_BREAKER_INTERVAL" envDefault:"60s"`
	FailureRatio float64       `env:"NOTIFY_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	MinRequests  uint32        `env:"NOTIFY_BREAKER_MIN_REQUESTS" envDefault:"5"`
}

// Observability groups tracing and profiling settings.
type Observability struct {
	OTELEnabled      bool     `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint     string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate   float64  `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
	PprofAllowedCIDR []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`
}

// Config holds all configuration for the API server.
type Config struct {
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// PublicBaseURL prefixes links sent by email.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8000"`

	Postgres Postgres

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	JWTSecret            string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTIssuer            string        `env:"JWT_ISSUER" envDefault:"gymtrack"`
	AccessTokenTTL       time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenTTL      time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"168h"`
	VerifyTokenTTL       time.Duration `env:"EMAIL_VERIFY_TOKEN_EXPIRY" envDefault:"24h"`
	ResetTokenTTL        time.Duration `env:"PASSWORD_RESET_TOKEN_EXPIRY" envDefault:"72h"`
	PasswordMinLength    int           `env:"PASSWORD_MIN_LENGTH" envDefault:"5"`
	BcryptCost           int           `env:"BCRYPT_COST" envDefault:"12"`
	RevocationBackend    string        `env:"REVOCATION_BACKEND" envDefault:"postgres"`
	RevocationPurgeEvery time.Duration `env:"REVOCATION_PURGE_INTERVAL" envDefault:"1h"`

	NotifyBackend string `env:"NOTIFY_BACKEND" envDefault:"log"`
	MailFrom      string `env:"MAIL_FROM" envDefault:"GymTrack <no-reply@gymtrack.local>"`
	SMTP          SMTP
	Mailgun       Mailgun
	Breaker       Breaker

	Observability Observability

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Throttling of login, registration and password reset per client.
	CredentialRateEvery  time.Duration `env:"CREDENTIAL_RATE_LIMIT_EVERY" envDefault:"6s"`
	CredentialRateBurst  int           `env:"CREDENTIAL_RATE_LIMIT_BURST" envDefault:"10"`
	TrustForwardedHeader bool          `env:"TRUST_X_FORWARDED_FOR" envDefault:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load gymtrack config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints. In non-development environments
// it requires an explicitly set, strong JWT secret.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.Environment != "development" {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(c.JWTSecret))
		}
	}

	for name, ttl := range map[string]time.Duration{
		"JWT_ACCESS_TOKEN_EXPIRY":     c.AccessTokenTTL,
		"JWT_REFRESH_TOKEN_EXPIRY":    c.RefreshTokenTTL,
		"EMAIL_VERIFY_TOKEN_EXPIRY":   c.VerifyTokenTTL,
		"PASSWORD_RESET_TOKEN_EXPIRY": c.ResetTokenTTL,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, ttl)
		}
	}

	if c.PasswordMinLength < 1 {
		return fmt.Errorf("PASSWORD_MIN_LENGTH must be at least 1, got %d", c.PasswordMinLength)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}

	if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL, got %q", c.PublicBaseURL)
	}

	switch c.RevocationBackend {
	case RevocationPostgres, RevocationRedis, RevocationMemory:
	default:
		return fmt.Errorf("unknown REVOCATION_BACKEND %q", c.RevocationBackend)
	}
	if c.RevocationBackend == RevocationMemory && c.Environment != "development" {
		return errors.New("REVOCATION_BACKEND=memory is only allowed in development")
	}

	switch c.NotifyBackend {
	case NotifyLog:
	case NotifySMTP:
		if c.SMTP.Host == "" {
			return errors.New("SMTP_HOST is required for NOTIFY_BACKEND=smtp")
		}
	case NotifyMailgun:
		if err := c.Mailgun.validate(); err != nil {
			return err
		}
	case NotifyKafka:
		if !c.KafkaEnabled {
			return errors.New("NOTIFY_BACKEND=kafka requires KAFKA_ENABLED=true")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_BACKEND %q", c.NotifyBackend)
	}

	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS must not be empty when KAFKA_ENABLED=true")
	}

	if c.CredentialRateBurst > 0 && c.CredentialRateEvery <= 0 {
		return fmt.Errorf("CREDENTIAL_RATE_LIMIT_EVERY must be positive, got %s", c.CredentialRateEvery)
	}

	return c.Breaker.validate()
}

func (m Mailgun) validate() error {
	if m.Domain == "" || m.APIKey == "" {
		return errors.New("MAILGUN_DOMAIN and MAILGUN_API_KEY are required for the mailgun backend")
	}
	return nil
}

func (b Breaker) validate() error {
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		return fmt.Errorf("NOTIFY_BREAKER_FAILURE_RATIO must be in (0, 1], got %v", b.FailureRatio)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("NOTIFY_BREAKER_TIMEOUT must be positive, got %s", b.Timeout)
	}
	return nil
}

// Auth returns the token codec configuration.
func (c *Config) Auth() auth.Config {
	return auth.Config{
		Secret:     c.JWTSecret,
		Issuer:     c.JWTIssuer,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
		VerifyTTL:  c.VerifyTokenTTL,
		ResetTTL:   c.ResetTokenTTL,
	}
}

// PostgresConfig converts the connection settings for database.NewPostgresPool.
func (p Postgres) PostgresConfig() *database.PostgresConfig {
	cfg := database.DefaultPostgresConfig()
	cfg.Host = p.Host
	cfg.Port = p.Port
	cfg.User = p.User
	cfg.Password = p.Password
	cfg.DBName = p.DBName
	cfg.SSLMode = p.SSLMode
	cfg.MaxConns = p.MaxConns
	cfg.MinConns = p.MinConns
	return &cfg
}

// Redis returns the Redis connection settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// Tracing returns the OpenTelemetry settings for the named service.
func (o Observability) Tracing(service, environment string) tracing.Config {
	cfg := tracing.DefaultConfig(service)
	cfg.Environment = environment
	cfg.Enabled = o.OTELEnabled
	cfg.OTLPEndpoint = o.OTELEndpoint
	cfg.SampleRate = o.OTELSampleRate
	return cfg
}

// MailerConfig holds configuration for the mail delivery worker.
type MailerConfig struct {
	Environment  string   `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel     string   `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort     int      `env:"MAILER_HTTP_PORT" envDefault:"8001"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	GroupID      string   `env:"MAILER_GROUP_ID" envDefault:"gymtrack-mailer"`
	MaxRetries   int      `env:"MAILER_MAX_RETRIES" envDefault:"3"`

	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	DedupTTL      time.Duration `env:"MAILER_DEDUP_TTL" envDefault:"24h"`

	// Backend is the delivery transport; kafka would loop back to itself.
	Backend  string `env:"MAILER_BACKEND" envDefault:"smtp"`
	MailFrom string `env:"MAIL_FROM" envDefault:"GymTrack <no-reply@gymtrack.local>"`
	SMTP     SMTP
	Mailgun  Mailgun
	Breaker  Breaker

	Observability Observability
}

// LoadMailer reads the mail worker configuration from environment variables.
func LoadMailer() (*MailerConfig, error) {
	cfg := &MailerConfig{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load mailer config: %w", err)
	}
	return cfg, nil
}

// Validate checks the mailer's backend selection.
func (c *MailerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS must not be empty")
	}
	switch c.Backend {
	case NotifyLog:
	case NotifySMTP:
		if c.SMTP.Host == "" {
			return errors.New("SMTP_HOST is required for MAILER_BACKEND=smtp")
		}
	case NotifyMailgun:
		if err := c.Mailgun.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported MAILER_BACKEND %q", c.Backend)
	}
	return c.Breaker.validate()
}

// Redis returns the Redis connection settings used for de-duplication.
func (c *MailerConfig) Redis() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}
