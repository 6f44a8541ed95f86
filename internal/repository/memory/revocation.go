// Package memory holds in-process repository implementations for
// development and tests. Nothing here survives a restart.
package memory

import (
	"context"
	"sync"
	"time"
)

// RevocationList implements repository.RevocationList with a map guarded by
// a RWMutex. Entries past their token's expiry are dropped lazily.
type RevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewRevocationList creates an empty in-memory revocation list.
func NewRevocationList() *RevocationList {
	return &RevocationList{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke records tokenID until expiresAt. The first expiry recorded wins.
func (l *RevocationList) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[tokenID]; !ok {
		l.entries[tokenID] = expiresAt
	}
	return nil
}

// IsRevoked reports whether tokenID is present and not yet expired.
func (l *RevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	l.mu.RLock()
	exp, ok := l.entries[tokenID]
	l.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if l.now().After(exp) {
		l.mu.Lock()
		delete(l.entries, tokenID)
		l.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// PurgeExpired removes every entry past its expiry and returns the count.
func (l *RevocationList) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	for id, exp := range l.entries {
		if now.After(exp) {
			delete(l.entries, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, expired or not.
func (l *RevocationList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
