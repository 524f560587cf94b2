package ports

import (
	"context"
	"time"
)

// TokenStore persists the bearer token across restarts, like a browser cookie
type TokenStore interface {
	// Get returns core.ErrTokenNotFound when no token is stored
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// NonceStore records consumed challenge ids so each challenge verifies at most once
type NonceStore interface {
	// Consume marks id as used and reports whether it was unused before
	Consume(ctx context.Context, id string, ttl time.Duration) (bool, error)
}
