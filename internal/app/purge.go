package app

import (
	"context"
	"log/slog"
	"time"
)

// expiredPurger is implemented by revocation lists that keep rows past the
// natural expiry of the token they name.
type expiredPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// runPurger deletes expired revocations every interval until ctx is done.
func runPurger(ctx context.Context, p expiredPurger, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := p.PurgeExpired(ctx, now)
			if err != nil {
				logger.Warn("purge revoked tokens failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				logger.Info("purged expired revoked tokens", slog.Int64("count", n))
			}
		}
	}
}
