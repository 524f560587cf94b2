package service

import (
	"log/slog"
	"time"

	"github.com/layer-3/govdash/core"
)

// RestorePolicy decides how much a persisted token is trusted on restore
type RestorePolicy string

const (
	// RestoreOptimistic trusts any persisted token until an API call rejects it
	RestoreOptimistic RestorePolicy = "optimistic"
	// RestoreExpiry also drops tokens whose exp claim has passed or whose subject
	// belongs to another wallet. Opaque tokens are trusted as with RestoreOptimistic.
	RestoreExpiry RestorePolicy = "expiry"
)

// Cache keys the controller reads and invalidates
const (
	KeyWatchlist   = "watchlist"
	KeyUserProfile = "user-profile"
)

// AssociatedDaosKey is the cache key of the DAOs associated with address
func AssociatedDaosKey(address string) string {
	return "user-daos:" + address
}

// Options tunes the authentication controller
type Options struct {
	Countdown     int
	TickInterval  time.Duration
	RestorePolicy RestorePolicy

	// InvalidateOnDiscovery lists every cache key the controller invalidates after
	// the associated DAOs fetch succeeds. The server adds those DAOs to the
	// watchlist, so views built on these keys must reload.
	InvalidateOnDiscovery []string

	Logger *slog.Logger
	Now    func() time.Time
}

// DefaultOptions returns the production timings
func DefaultOptions() Options {
	return Options{
		Countdown:             core.DefaultCountdown,
		TickInterval:          time.Second,
		RestorePolicy:         RestoreExpiry,
		InvalidateOnDiscovery: []string{KeyWatchlist, KeyUserProfile},
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Countdown < 0 {
		o.Countdown = 0
	}
	if o.TickInterval <= 0 {
		o.TickInterval = def.TickInterval
	}
	if o.RestorePolicy == "" {
		o.RestorePolicy = def.RestorePolicy
	}
	if o.InvalidateOnDiscovery == nil {
		o.InvalidateOnDiscovery = def.InvalidateOnDiscovery
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
