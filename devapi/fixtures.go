package devapi

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/layer-3/govdash/core"
)

// Fixtures maps a wallet address to its DAO memberships. The "*" entry applies
// to every address without an entry of its own.
type Fixtures map[string][]core.DaoMembership

// Wildcard is the fixture key matching any address
const Wildcard = "*"

// For returns the memberships of address, never nil
func (f Fixtures) For(address string) []core.DaoMembership {
	memberships, ok := f[address]
	if !ok {
		memberships = f[Wildcard]
	}
	return append([]core.DaoMembership{}, memberships...)
}

// Name looks up the display name of realm, falling back to the realm itself
func (f Fixtures) Name(realm string) string {
	for _, memberships := range f {
		for _, m := range memberships {
			if m.Realm == realm && m.Name != "" {
				return m.Name
			}
		}
	}
	return realm
}

// LoadFixtures reads fixtures from a JSON file shaped like Fixtures
func LoadFixtures(path string) (Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fixtures Fixtures
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures %s: %w", path, err)
	}
	return fixtures, nil
}
