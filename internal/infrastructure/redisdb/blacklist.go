package redisdb

import (
	"context"
	"fmt"
	"time"

	"github.com/clearflow/clearflow-api/internal/config"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// NewClient creates a Redis client from configuration.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// Blacklist is the revocation registry: the set of session tokens that must
// no longer authorize requests. Entries are never expired or swept here; the
// registry only grows.
type Blacklist struct {
	client *redis.Client
}

func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

// Revoke records the token as revoked. Revoking an already-revoked token is
// a no-op success.
func (b *Blacklist) Revoke(ctx context.Context, token string) error {
	revokedAt := time.Now().UTC().Format(time.RFC3339)
	if err := b.client.SetNX(ctx, revokedKeyPrefix+token, revokedAt, 0).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token has been revoked.
func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := b.client.Exists(ctx, revokedKeyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
