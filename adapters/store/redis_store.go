package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/govdash/core"
	"github.com/layer-3/govdash/ports"
	"github.com/redis/go-redis/v9"
)

// RedisTokenStore keeps the bearer token under a single Redis key
type RedisTokenStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedisTokenStore creates a token store for one dashboard profile.
// A zero ttl keeps the token until it is cleared.
func NewRedisTokenStore(client redis.UniversalClient, profile string, ttl time.Duration) *RedisTokenStore {
	return &RedisTokenStore{
		client: client,
		key:    "govdash:token:" + profile,
		ttl:    ttl,
	}
}

// Get retrieves the stored token
func (s *RedisTokenStore) Get(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", core.ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to read token: %w", core.ErrStoreOperationFailed)
	}
	return token, nil
}

// Set stores the token with the configured expiration
func (s *RedisTokenStore) Set(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", core.ErrStoreOperationFailed)
	}
	return nil
}

// Clear deletes the stored token
func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear token: %w", core.ErrStoreOperationFailed)
	}
	return nil
}

// RedisNonceStore is a Redis implementation of ports.NonceStore
type RedisNonceStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisNonceStore creates a new Redis nonce store
func NewRedisNonceStore(client redis.UniversalClient) ports.NonceStore {
	return &RedisNonceStore{
		client: client,
		prefix: "govdash:challenge:used:",
	}
}

// Consume marks the challenge id as used, atomically with the check
func (s *RedisNonceStore) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+id, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume challenge: %w", err)
	}
	return ok, nil
}
