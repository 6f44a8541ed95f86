package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/utafrali/GymTrack/internal/domain"
)

// Token types carried in the token_type claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
	TypeVerify  = "verify"
)

var (
	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned when a token cannot be decoded, its
	// signature or algorithm does not verify, or its claims are unusable.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrWrongTokenType is wrapped together with ErrTokenMalformed when a
	// token of one type is presented where another is expected.
	ErrWrongTokenType = errors.New("wrong token type")
)

// Config configures token issuance. All tokens are HS256-signed with Secret.
type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	VerifyTTL  time.Duration
	ResetTTL   time.Duration
}

// Claims is the payload of every JWT issued here.
type Claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies access, refresh, email-verification and
// password-reset tokens.
type TokenManager struct {
	cfg    Config
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenManager creates a TokenManager. It fails on an empty secret or a
// non-positive TTL.
func NewTokenManager(cfg Config) (*TokenManager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: empty secret")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.VerifyTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	m := &TokenManager{cfg: cfg, secret: []byte(cfg.Secret), now: time.Now}
	m.parser = m.newParser()
	return m, nil
}

// SetClock replaces the time source. Intended for tests.
func (m *TokenManager) SetClock(now func() time.Time) {
	m.now = now
	m.parser = m.newParser()
}

func (m *TokenManager) newParser() *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}
	return jwt.NewParser(opts...)
}

// IssueAccessToken returns a short-lived access token for u.
func (m *TokenManager) IssueAccessToken(u *domain.User) (string, time.Time, error) {
	token, _, exp, err := m.issue(u.ID, TypeAccess, m.cfg.AccessTTL, "")
	return token, exp, err
}

// IssueRefreshToken returns a refresh token for u together with its unique
// id, which is what the revocation list records.
func (m *TokenManager) IssueRefreshToken(u *domain.User) (token, tokenID string, expiresAt time.Time, err error) {
	return m.issue(u.ID, TypeRefresh, m.cfg.RefreshTTL, uuid.NewString())
}

// IssueVerificationToken returns an email-verification token for u.
func (m *TokenManager) IssueVerificationToken(u *domain.User) (string, time.Time, error) {
	token, _, exp, err := m.issue(u.ID, TypeVerify, m.cfg.VerifyTTL, "")
	return token, exp, err
}

func (m *TokenManager) issue(userID, tokenType string, ttl time.Duration, id string) (string, string, time.Time, error) {
	now := m.now().UTC()
	exp := now.Add(ttl)
	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   userID,
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, id, exp, nil
}

// DecodeAccessToken verifies an access token.
func (m *TokenManager) DecodeAccessToken(token string) (*Claims, error) {
	return m.decode(token, TypeAccess)
}

// DecodeRefreshToken verifies a refresh token. The returned claims carry the
// token id in ID.
func (m *TokenManager) DecodeRefreshToken(token string) (*Claims, error) {
	claims, err := m.decode(token, TypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: refresh token without id", ErrTokenMalformed)
	}
	return claims, nil
}

// DecodeVerificationToken verifies an email-verification token.
func (m *TokenManager) DecodeVerificationToken(token string) (*Claims, error) {
	return m.decode(token, TypeVerify)
}

// decode returns ErrTokenExpired only for tokens whose signature verifies;
// every other failure is ErrTokenMalformed.
func (m *TokenManager) decode(token, want string) (*Claims, error) {
	claims := &Claims{}
	_, err := m.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	if claims.TokenType != want {
		return nil, fmt.Errorf("%w: %w: got %q, want %q", ErrTokenMalformed, ErrWrongTokenType, claims.TokenType, want)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrTokenMalformed)
	}
	return claims, nil
}
