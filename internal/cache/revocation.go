package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:"

// Revocations is the deny list of token IDs. A nil client disables it: Revoke
// is a no-op and nothing is ever reported revoked.
type Revocations struct {
	client *redis.Client
}

// NewRevocations creates a deny list backed by client.
func NewRevocations(client *redis.Client) *Revocations {
	return &Revocations{client: client}
}

// Enabled reports whether revocation is backed by Redis.
func (r *Revocations) Enabled() bool {
	return r != nil && r.client != nil
}

// Revoke denies jti until ttl elapses. Entries expire with the token they name.
func (r *Revocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if !r.Enabled() || jti == "" || ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, blacklistPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if !r.Enabled() || jti == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
