package service

import (
	"context"
	"fmt"

	"github.com/layer-3/govdash/cache"
	"github.com/layer-3/govdash/core"
	"github.com/layer-3/govdash/ports"
)

// WatchlistService reads and edits the watchlist through the shared query cache
type WatchlistService struct {
	api   ports.DaoAPI
	cache *cache.Cache
}

// NewWatchlistService creates a new watchlist service
func NewWatchlistService(api ports.DaoAPI, c *cache.Cache) *WatchlistService {
	return &WatchlistService{api: api, cache: c}
}

// List returns the watchlist, from cache while it is fresh
func (s *WatchlistService) List(ctx context.Context) ([]core.WatchlistEntry, error) {
	q := s.cache.Fetch(KeyWatchlist, func(ctx context.Context) (any, error) {
		return s.api.Watchlist(ctx)
	})

	data, err := q.Wait(ctx)
	if err != nil {
		return nil, err
	}
	entries, ok := data.([]core.WatchlistEntry)
	if !ok {
		return nil, fmt.Errorf("unexpected watchlist value %T", data)
	}
	return entries, nil
}

// Add tracks realm
func (s *WatchlistService) Add(ctx context.Context, realm string) error {
	if err := s.api.AddToWatchlist(ctx, realm); err != nil {
		return err
	}
	s.cache.Invalidate(KeyWatchlist)
	return nil
}

// Remove stops tracking realm
func (s *WatchlistService) Remove(ctx context.Context, realm string) error {
	if err := s.api.RemoveFromWatchlist(ctx, realm); err != nil {
		return err
	}
	s.cache.Invalidate(KeyWatchlist)
	return nil
}
