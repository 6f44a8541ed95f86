package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/GymTrack/pkg/errors"
	"github.com/utafrali/GymTrack/pkg/httputil"
	"github.com/utafrali/GymTrack/pkg/logger"
)

type contextKeyType string

const claimsKey contextKeyType = "claims"

// Claims describes the authenticated caller. Level orders permission tiers
// so RequireLevel can compare them; Role is its printable name.
type Claims struct {
	UserID string
	Email  string
	Role   string
	Level  int
}

// TokenValidator resolves a bearer token to claims. Returned AppErrors are
// rendered as-is; any other error becomes a generic 401.
type TokenValidator func(ctx context.Context, token string) (*Claims, error)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Auth requires a valid bearer token and stores the resolved claims in the
// request context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				httputil.WriteError(w, r, apperrors.Unauthorized("Authentication credentials were not provided."), nil)
				return
			}

			claims, err := validate(r.Context(), token)
			if err != nil {
				var appErr *apperrors.AppError
				if !errors.As(err, &appErr) {
					err = apperrors.Unauthorized("Given token not valid for any token type")
				}
				httputil.WriteError(w, r, err, nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireLevel rejects unauthenticated callers with 401 and callers whose
// level is below min with 403. It must run after Auth.
func RequireLevel(min int, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("Authentication credentials were not provided."), nil)
				return
			}
			if claims.Level < min {
				httputil.WriteError(w, r, apperrors.Forbidden(message), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims stores claims in ctx and tags the logging context with the user id.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	ctx = context.WithValue(ctx, claimsKey, c)
	if c != nil && c.UserID != "" {
		ctx = logger.WithUserID(ctx, c.UserID)
	}
	return ctx
}

// ClaimsFromContext returns the caller's claims or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// UserIDFromContext returns the authenticated user id or "".
func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}
