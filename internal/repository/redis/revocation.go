package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "revoked:"

// RevocationList implements repository.RevocationList using Redis. Each
// revoked id is its own key and expires together with the token it names.
type RevocationList struct {
	client *redis.Client
	now    func() time.Time
}

// NewRevocationList creates a new Redis-backed revocation list.
func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{
		client: client,
		now:    time.Now,
	}
}

// Revoke stores tokenID until expiresAt. SETNX keeps the first revocation's
// TTL when called twice. A token that is already past its expiry is not
// stored since it can no longer be decoded.
func (r *RevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	// Round up so a sub-second remainder does not become "no expiry".
	if ttl < time.Second {
		ttl = time.Second
	}

	if err := r.client.SetNX(ctx, keyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke token: %w", err)
	}

	return nil
}

// IsRevoked reports whether tokenID has a live revocation key.
func (r *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis check revoked: %w", err)
	}

	return n > 0, nil
}
