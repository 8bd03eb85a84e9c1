package refresh

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist tracks revoked access tokens in Redis for the remainder of
// their lifetime. A nil client disables the feature.
type Blacklist struct {
	client *redis.Client
}

func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

func (b *Blacklist) key(token string) string {
	return "blacklist:access:" + token
}

// Add stores the token with the given TTL. No-op without a client.
func (b *Blacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Set(ctx, b.key(token), "1", ttl).Err()
}

// Contains reports whether the token has been revoked. Without a client it
// always reports false.
func (b *Blacklist) Contains(ctx context.Context, token string) (bool, error) {
	if b == nil || b.client == nil {
		return false, nil
	}
	exists, err := b.client.Exists(ctx, b.key(token)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
