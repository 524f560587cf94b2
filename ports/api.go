package ports

import (
	"context"

	"github.com/layer-3/govdash/core"
)

// VerifyRequest is the payload submitted to the verify endpoint
type VerifyRequest struct {
	WalletAddress string `json:"walletAddress"`
	Challenge     string `json:"challenge"`
	Signature     string `json:"signature"`
}

// AuthAPI is the external challenge/verify endpoint pair
type AuthAPI interface {
	Challenge(ctx context.Context, address string) (string, error)
	Verify(ctx context.Context, req VerifyRequest) (string, error)
}

// DaoAPI serves identity scoped governance data
type DaoAPI interface {
	AssociatedDaos(ctx context.Context) (*core.AssociatedDaos, error)
	Watchlist(ctx context.Context) ([]core.WatchlistEntry, error)
	AddToWatchlist(ctx context.Context, realm string) error
	RemoveFromWatchlist(ctx context.Context, realm string) error
}
