// Package redis backs the revoked-token store. Logout writes the token with
// a TTL matching its remaining validity; the auth middleware rejects tokens
// present in the store.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinica-valencia/clinic-api/internal/repository"
)

const revokedPrefix = "revoked_token:"

type tokenRepository struct {
	client *redis.Client
}

func NewTokenRepository(url string) (repository.TokenRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &tokenRepository{client: client}, nil
}

func (r *tokenRepository) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired, nothing to track.
		return nil
	}
	if err := r.client.Set(ctx, revokedPrefix+token, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *tokenRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}
