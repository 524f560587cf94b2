package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DaoMembership is a DAO the authenticated wallet holds governance tokens in
type DaoMembership struct {
	Name         string          `json:"name"`
	Realm        string          `json:"realm"`
	Image        string          `json:"image,omitempty"`
	TokenDeposit decimal.Decimal `json:"tokenDeposit"`
}

// AssociatedDaos is the response of the user DAOs query
type AssociatedDaos struct {
	Count  int             `json:"count"`
	Result []DaoMembership `json:"result"`
}

// TotalDeposit sums the token deposits across all memberships.
func (a *AssociatedDaos) TotalDeposit() decimal.Decimal {
	total := decimal.Zero
	if a == nil {
		return total
	}
	for _, m := range a.Result {
		total = total.Add(m.TokenDeposit)
	}
	return total
}

// WatchlistEntry is a DAO the user tracks for notifications
type WatchlistEntry struct {
	Realm   string    `json:"realm"`
	Name    string    `json:"name"`
	AddedAt time.Time `json:"addedAt"`
}
