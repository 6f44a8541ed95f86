package http

import (
	"context"
	"mime"
	"net/http"

	"github.com/utafrali/GymTrack/internal/service"
	apperrors "github.com/utafrali/GymTrack/pkg/errors"
	"github.com/utafrali/GymTrack/pkg/httputil"
	"github.com/utafrali/GymTrack/pkg/middleware"
)

// ContentTypeJSON rejects bodies declared as anything other than JSON.
// Requests without a Content-Type header are let through and decoded as
// JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// GateValidator adapts the authorization gate to middleware.Auth.
func GateValidator(gate *service.Gate) middleware.TokenValidator {
	return func(ctx context.Context, token string) (*middleware.Claims, error) {
		id, err := gate.Resolve(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: id.UserID,
			Email:  id.Email,
			Role:   id.Tier.String(),
			Level:  int(id.Tier),
		}, nil
	}
}

// currentUserID returns the authenticated caller or writes a 401.
func currentUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := middleware.UserIDFromContext(r.Context())
	if id == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("Authentication credentials were not provided."), nil)
		return "", false
	}
	return id, true
}
