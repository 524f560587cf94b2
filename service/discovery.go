package service

import (
	"fmt"

	"github.com/layer-3/govdash/cache"
	"github.com/layer-3/govdash/core"
	"github.com/shopspring/decimal"
)

// DiscoveryView is what the discovery modal renders
type DiscoveryView struct {
	Open         bool                 `json:"open"`
	Status       cache.Status         `json:"status,omitempty"`
	Found        bool                 `json:"found"`
	Count        int                  `json:"count"`
	Daos         []core.DaoMembership `json:"daos"`
	TotalDeposit decimal.Decimal      `json:"total_deposit"`
	Message      string               `json:"message"`
}

const (
	noDaosMessage    = "No DAOs found for this wallet"
	searchingMessage = "Looking for DAOs associated with this wallet"
)

// Discovery builds the discovery modal content from the cached associated DAOs.
// It never fetches; a missing or failed query renders as no DAOs found and a
// pending one as neither branch.
func (c *AuthController) Discovery() DiscoveryView {
	snap := c.Snapshot()
	view := DiscoveryView{
		Open:         snap.DiscoveryModalOpen,
		Daos:         []core.DaoMembership{},
		TotalDeposit: decimal.Zero,
	}

	var daos *core.AssociatedDaos
	if snap.IsAuthenticated {
		if q := c.cache.Peek(AssociatedDaosKey(snap.Address)); q != nil {
			view.Status = q.Status()
			if view.Status == cache.StatusPending {
				view.Message = searchingMessage
				return view
			}
			daos, _ = cache.Get[*core.AssociatedDaos](q)
		}
	}

	if daos == nil || daos.Count == 0 {
		view.Message = noDaosMessage
		return view
	}

	view.Found = true
	view.Count = daos.Count
	view.Daos = daos.Result
	view.TotalDeposit = daos.TotalDeposit()
	view.Message = foundDaosMessage(daos.Count)
	return view
}

func foundDaosMessage(count int) string {
	if count == 1 {
		return "1 DAO found, added to your watchlist"
	}
	return fmt.Sprintf("%d DAOs found, added to your watchlist", count)
}
