package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/GymTrack/pkg/logger"
)

// RequestLogger stores a request-scoped logger (correlation_id, user_id,
// trace_id, span_id) in the context for logger.FromContext.
//
// Mount it after RequestLogging and Tracing. Routes behind Auth get the
// user id because Auth tags the context before calling the next handler;
// mount RequestLogger again inside such groups to pick it up.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := UserIDFromContext(ctx); id != "" && logger.UserIDFromContext(ctx) == "" {
				ctx = logger.WithUserID(ctx, id)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
