package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevocationList_RevokeAndCheck(t *testing.T) {
	l := NewRevocationList()
	ctx := context.Background()

	revoked, err := l.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, l.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	require.NoError(t, l.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

	revoked, err = l.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 1, l.Len())
}

func TestRevocationList_LazyExpiry(t *testing.T) {
	l := NewRevocationList()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	require.NoError(t, l.Revoke(context.Background(), "jti-1", now.Add(time.Minute)))

	now = now.Add(2 * time.Minute)
	revoked, err := l.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Equal(t, 0, l.Len())
}

func TestRevocationList_PurgeExpired(t *testing.T) {
	l := NewRevocationList()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	require.NoError(t, l.Revoke(ctx, "old", base.Add(time.Minute)))
	require.NoError(t, l.Revoke(ctx, "new", base.Add(time.Hour)))

	n, err := l.PurgeExpired(ctx, base.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, l.Len())
}

func TestRevocationList_Concurrent(t *testing.T) {
	l := NewRevocationList()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("jti-%d", i%10)
			_ = l.Revoke(ctx, id, exp)
			_, _ = l.IsRevoked(ctx, id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, l.Len())
}
