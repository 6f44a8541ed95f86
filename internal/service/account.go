package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/GymTrack/internal/auth"
	"github.com/utafrali/GymTrack/internal/domain"
	"github.com/utafrali/GymTrack/internal/notify"
	"github.com/utafrali/GymTrack/internal/repository"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
	"github.com/utafrali/GymTrack/pkg/tracing"
)

// Client-facing messages. Authentication failures are deliberately generic.
const (
	MsgBadCredentials     = "Unable to authenticate with provided credentials"
	MsgAccountDisabled    = "Account is disabled, contact admin."
	MsgEmailNotVerified   = "Email is not verified."
	MsgActivated          = "Successfully activated"
	MsgActivationExpired  = "Activation Expired"
	MsgInvalidToken       = "Invalid token"
	MsgUnknownResetEmail  = "No account is registered with this email."
	MsgResetTokenInvalid  = "Token is not valid, please request a new one"
	MsgResetEmailSent     = "We have sent you a link to reset your password"
	MsgPasswordReset      = "Password reset success"
	MsgRefreshInvalid     = "Token is invalid or expired"
	MsgVerificationResent = "If the account exists and is not verified, a new link has been sent."
)

const apiPrefix = "/api/v1/user"

// EventPublisher publishes account domain events. Failures are logged by
// the caller and never undo a committed change.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, u *domain.User) error
	PublishUserVerified(ctx context.Context, u *domain.User) error
	PublishUserUpdated(ctx context.Context, u *domain.User, emailChanged, passwordChanged bool) error
	PublishUserPasswordReset(ctx context.Context, u *domain.User) error
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is a successful login: the user and a fresh token pair.
type LoginResult struct {
	User   *domain.User
	Tokens domain.TokenPair
}

// ResetConfirmInput holds the parameters for completing a password reset.
type ResetConfirmInput struct {
	UIDB64   string
	Token    string
	Password string
}

// AccountService drives the account lifecycle: registration, email
// verification, login, profile changes, password reset and logout.
type AccountService struct {
	creds    *CredentialStore
	tokens   *auth.TokenManager
	revoked  repository.RevocationList
	notifier notify.Sender
	events   EventPublisher
	baseURL  string
	logger   *slog.Logger
}

// NewAccountService creates an AccountService. events may be nil when no
// broker is configured. baseURL prefixes the links sent by email.
func NewAccountService(
	creds *CredentialStore,
	tokens *auth.TokenManager,
	revoked repository.RevocationList,
	notifier notify.Sender,
	events EventPublisher,
	baseURL string,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		creds:    creds,
		tokens:   tokens,
		revoked:  revoked,
		notifier: notifier,
		events:   events,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// --- Links ---

func (s *AccountService) verificationLink(token string) string {
	return s.baseURL + apiPrefix + "/email-verify?token=" + url.QueryEscape(token)
}

func (s *AccountService) resetLink(uidb64, token string) string {
	return s.baseURL + apiPrefix + "/password-reset/confirm/" + uidb64 + "/" + token
}

// --- Side effects ---

// sendEmail sends msg and swallows the error: the state change that triggered
// it has already been committed.
func (s *AccountService) sendEmail(ctx context.Context, u *domain.User, to string, msg notify.Message) {
	if err := s.notifier.Send(ctx, to, msg.Subject, msg.Body); err != nil {
		countEvent(eventNotifyFailed)
		s.logger.ErrorContext(ctx, "failed to send notification",
			slog.String("user_id", u.ID),
			slog.String("subject", msg.Subject),
			slog.String("backend", s.notifier.Name()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *AccountService) publish(ctx context.Context, u *domain.User, name string, fn func(EventPublisher) error) {
	if s.events == nil {
		return
	}
	if err := fn(s.events); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish "+name+" event",
			slog.String("user_id", u.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *AccountService) sendVerification(ctx context.Context, u *domain.User) error {
	token, _, err := s.tokens.IssueVerificationToken(u)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}
	s.sendEmail(ctx, u, u.Email, notify.VerificationEmail(u.Name, s.verificationLink(token)))
	return nil
}

// endSpan marks the span failed only for unexpected errors; rejected
// credentials and bad tokens are normal outcomes.
func endSpan(span trace.Span, err error) {
	var appErr *apperrors.AppError
	if err != nil && !errors.As(err, &appErr) {
		tracing.RecordError(span, err)
	}
	span.End()
}

// --- Lifecycle operations ---

// Register creates an unverified user and emails a verification link. No
// email is sent when validation fails.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (_ *domain.User, err error) {
	ctx, span := tracing.Start(ctx, "account.Register")
	defer func() { endSpan(span, err) }()

	u, err := s.creds.CreateUser(ctx, input.Email, input.Password, input.Name, UserExtra{})
	if err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, u); err != nil {
		return nil, err
	}
	s.publish(ctx, u, "user.registered", func(p EventPublisher) error {
		return p.PublishUserRegistered(ctx, u)
	})

	countEvent(eventRegistered)
	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", u.ID),
	)
	return u, nil
}

// VerifyEmail activates the user named by a verification token. Expired and
// malformed tokens fail with distinct errors; verifying twice succeeds.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) (_ *domain.User, err error) {
	ctx, span := tracing.Start(ctx, "account.VerifyEmail")
	defer func() { endSpan(span, err) }()

	claims, err := s.tokens.DecodeVerificationToken(token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return nil, apperrors.TokenExpired(MsgActivationExpired)
	case err != nil:
		return nil, apperrors.TokenMalformed(MsgInvalidToken)
	}

	u, already, err := s.creds.MarkVerified(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.TokenMalformed(MsgInvalidToken)
		}
		return nil, err
	}
	if already {
		return u, nil
	}

	s.publish(ctx, u, "user.verified", func(p EventPublisher) error {
		return p.PublishUserVerified(ctx, u)
	})
	countEvent(eventVerified)
	s.logger.InfoContext(ctx, "email verified",
		slog.String("user_id", u.ID),
	)
	return u, nil
}

// ResendVerification issues a fresh verification link to an existing,
// unverified account. Unknown and already verified addresses succeed
// silently.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	u, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if u.IsVerified || !u.IsActive {
		return nil
	}
	return s.sendVerification(ctx, u)
}

// Login checks credentials and returns a fresh access and refresh token.
// Inactive users and unverified non-admins are rejected.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (_ *LoginResult, err error) {
	ctx, span := tracing.Start(ctx, "account.Login")
	defer func() { endSpan(span, err) }()

	u, err := s.creds.FindByEmail(ctx, input.Email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrInvalidInput) {
			return nil, fmt.Errorf("login: %w", err)
		}
		countEvent(eventLoginFailed)
		return nil, apperrors.Unauthorized(MsgBadCredentials)
	}

	if !s.creds.VerifyPassword(u, input.Password) {
		countEvent(eventLoginFailed)
		return nil, apperrors.Unauthorized(MsgBadCredentials)
	}
	if !u.IsActive {
		countEvent(eventLoginFailed)
		return nil, apperrors.Unauthorized(MsgAccountDisabled)
	}
	if !u.CanLogin() {
		countEvent(eventLoginFailed)
		return nil, apperrors.Unauthorized(MsgEmailNotVerified)
	}

	access, _, err := s.tokens.IssueAccessToken(u)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, _, _, err := s.tokens.IssueRefreshToken(u)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	countEvent(eventLogin)
	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", u.ID),
	)
	return &LoginResult{User: u, Tokens: domain.TokenPair{Access: access, Refresh: refresh}}, nil
}

// GetProfile returns the user's current record.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.creds.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return u, nil
}

// UpdateProfile applies a partial update. A changed email puts the account
// back into the unverified state and sends exactly one verification link,
// to the new address.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, changes domain.ProfileChanges) (*domain.User, error) {
	if changes.Empty() {
		return s.GetProfile(ctx, userID)
	}

	u, emailChanged, err := s.creds.UpdateProfile(ctx, userID, changes)
	if err != nil {
		return nil, err
	}

	if emailChanged {
		countEvent(eventEmailChanged)
		if err := s.sendVerification(ctx, u); err != nil {
			return nil, err
		}
	}
	passwordChanged := changes.Password != nil
	s.publish(ctx, u, "user.updated", func(p EventPublisher) error {
		return p.PublishUserUpdated(ctx, u, emailChanged, passwordChanged)
	})

	s.logger.InfoContext(ctx, "profile updated",
		slog.String("user_id", u.ID),
		slog.Bool("email_changed", emailChanged),
		slog.Bool("password_changed", passwordChanged),
	)
	return u, nil
}

// RequestPasswordReset emails a reset link to the account registered under
// email. An unknown address fails with 401.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrInvalidInput) {
			return apperrors.Unauthorized(MsgUnknownResetEmail)
		}
		return fmt.Errorf("request password reset: %w", err)
	}

	uidb64 := auth.EncodeUserReference(u.ID)
	token := s.tokens.IssueResetToken(u)
	s.sendEmail(ctx, u, u.Email, notify.PasswordResetEmail(u.Name, s.resetLink(uidb64, token)))

	countEvent(eventResetRequested)
	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("user_id", u.ID),
	)
	return nil
}

// CheckResetToken validates a reset link. Every failure is the same 401.
func (s *AccountService) CheckResetToken(ctx context.Context, uidb64, token string) (*domain.User, error) {
	userID, err := auth.DecodeUserReference(uidb64)
	if err != nil {
		return nil, apperrors.Unauthorized(MsgResetTokenInvalid)
	}
	u, err := s.creds.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(MsgResetTokenInvalid)
		}
		return nil, fmt.Errorf("check reset token: %w", err)
	}
	if !s.tokens.CheckResetToken(u, token) {
		return nil, apperrors.Unauthorized(MsgResetTokenInvalid)
	}
	return u, nil
}

// ConfirmResetPassword re-validates the reset link and sets the new
// password, which invalidates the link. Every rejection, a too-short
// password included, is the same 401.
func (s *AccountService) ConfirmResetPassword(ctx context.Context, input ResetConfirmInput) (err error) {
	ctx, span := tracing.Start(ctx, "account.ConfirmResetPassword")
	defer func() { endSpan(span, err) }()

	u, err := s.CheckResetToken(ctx, input.UIDB64, input.Token)
	if err != nil {
		return err
	}

	u, err = s.creds.SetPassword(ctx, u.ID, input.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) || errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Unauthorized(MsgResetTokenInvalid)
		}
		return fmt.Errorf("confirm password reset: %w", err)
	}

	s.publish(ctx, u, "user.password_reset", func(p EventPublisher) error {
		return p.PublishUserPasswordReset(ctx, u)
	})
	countEvent(eventResetCompleted)
	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", u.ID),
	)
	return nil
}

// Logout revokes the refresh token. Access tokens already issued stay valid
// until they expire.
func (s *AccountService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.DecodeRefreshToken(refreshToken)
	if err != nil {
		return apperrors.TokenInvalid(MsgRefreshInvalid)
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return apperrors.TokenInvalid(MsgRefreshInvalid)
	}

	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	countEvent(eventLogout)
	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", claims.UserID),
	)
	return nil
}

// RefreshAccess exchanges a live, unrevoked refresh token for a new access
// token.
func (s *AccountService) RefreshAccess(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.DecodeRefreshToken(refreshToken)
	if err != nil || claims.ID == "" {
		return "", apperrors.Unauthorized(MsgRefreshInvalid)
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return "", apperrors.Unauthorized(MsgRefreshInvalid)
	}

	u, err := s.creds.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.Unauthorized(MsgRefreshInvalid)
		}
		return "", fmt.Errorf("load user for refresh: %w", err)
	}
	if !u.IsActive {
		return "", apperrors.Unauthorized(MsgAccountDisabled)
	}

	access, _, err := s.tokens.IssueAccessToken(u)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	countEvent(eventRefreshed)
	return access, nil
}
