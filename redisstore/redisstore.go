package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "builder:revoked:"

// Revocations implements auth.Revocations on top of redis keys that expire
// together with the token they revoke.
type Revocations struct {
	rdb *redis.Client
}

// New creates a Revocations backed by the given redis client.
func New(rdb *redis.Client) *Revocations {
	return &Revocations{rdb: rdb}
}

// Revoke marks tokenID as revoked for ttl.
func (r *Revocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, keyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID has an unexpired revocation.
func (r *Revocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: exists: %w", err)
	}
	return n > 0, nil
}
