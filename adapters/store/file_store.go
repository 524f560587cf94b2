package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/layer-3/govdash/core"
)

// FileTokenStore persists the bearer token in a file readable only by the owner
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

// NewFileTokenStore creates a token store backed by path
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Get reads the token from disk
func (s *FileTokenStore) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", core.ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to read token file: %w", core.ErrStoreOperationFailed)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", core.ErrTokenNotFound
	}
	return token, nil
}

// Set writes the token through a temp file so readers never see a partial token
func (s *FileTokenStore) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", core.ErrStoreOperationFailed)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", core.ErrStoreOperationFailed)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace token file: %w", core.ErrStoreOperationFailed)
	}
	return nil
}

// Clear removes the token file
func (s *FileTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", core.ErrStoreOperationFailed)
	}
	return nil
}
