package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/govdash/core"
	"github.com/layer-3/govdash/ports"
)

// MemoryTokenStore keeps the bearer token in process memory
type MemoryTokenStore struct {
	token string
	mu    sync.RWMutex
}

// NewMemoryTokenStore creates an empty in-memory token store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Get returns the stored token
func (s *MemoryTokenStore) Get(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", core.ErrTokenNotFound
	}
	return s.token, nil
}

// Set replaces the stored token
func (s *MemoryTokenStore) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	return nil
}

// Clear removes the stored token
func (s *MemoryTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	return nil
}

// MemoryNonceStore is an in-memory implementation of ports.NonceStore
type MemoryNonceStore struct {
	consumed map[string]time.Time
	mu       sync.Mutex
}

// NewMemoryNonceStore creates a new in-memory nonce store
func NewMemoryNonceStore() ports.NonceStore {
	return &MemoryNonceStore{
		consumed: make(map[string]time.Time),
	}
}

// Consume marks a challenge id as used until ttl elapses
func (s *MemoryNonceStore) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.sweep(now)

	if expiry, exists := s.consumed[id]; exists && now.Before(expiry) {
		return false, nil
	}
	s.consumed[id] = now.Add(ttl)
	return true, nil
}

// sweep drops markers whose challenge can no longer be presented
func (s *MemoryNonceStore) sweep(now time.Time) {
	for id, expiry := range s.consumed {
		if !now.Before(expiry) {
			delete(s.consumed, id)
		}
	}
}
