package memory

import (
	"context"
	"sync"
	"time"
)

// Revocations implements auth.Revocations with an expiring map.
type Revocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewRevocations returns an empty revocation list.
func NewRevocations() *Revocations {
	return &Revocations{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke marks tokenID as revoked for ttl.
func (r *Revocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[tokenID] = r.now().Add(ttl)
	return nil
}

// IsRevoked reports whether tokenID has an unexpired revocation.
func (r *Revocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !r.now().Before(until) {
		delete(r.entries, tokenID)
		return false, nil
	}
	return true, nil
}
