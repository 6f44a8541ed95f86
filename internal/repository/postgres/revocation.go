package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/GymTrack/pkg/database"
)

// RevocationList implements repository.RevocationList on the revoked_tokens table.
type RevocationList struct {
	db database.DB
}

// NewRevocationList creates a new PostgreSQL-backed revocation list.
func NewRevocationList(db database.DB) *RevocationList {
	return &RevocationList{db: db}
}

// Revoke records tokenID. Uses ON CONFLICT DO NOTHING so repeated revocation
// of the same id succeeds.
func (r *RevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) (err error) {
	query := `
		INSERT INTO revoked_tokens (token_id, expires_at, revoked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_id) DO NOTHING`

	ctx, end := database.TraceQuery(ctx, "RevokeToken", query)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, query, tokenID, expiresAt.UTC(), time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

// IsRevoked reports whether tokenID is on the list.
func (r *RevocationList) IsRevoked(ctx context.Context, tokenID string) (revoked bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token_id = $1)`

	ctx, end := database.TraceQuery(ctx, "IsTokenRevoked", query)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, query, tokenID).Scan(&revoked); err != nil {
		return false, fmt.Errorf("check token revoked: %w", err)
	}

	return revoked, nil
}

// PurgeExpired deletes entries whose token would have expired by now anyway
// and returns how many rows were removed.
func (r *RevocationList) PurgeExpired(ctx context.Context, now time.Time) (n int64, err error) {
	query := `DELETE FROM revoked_tokens WHERE expires_at < $1`

	ctx, end := database.TraceQuery(ctx, "PurgeRevokedTokens", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}

	return ct.RowsAffected(), nil
}
