package wallet

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/govdash/ports"
)

// Approver decides whether a signature request goes ahead. It stands in for the
// confirmation prompt of a browser wallet extension and may block.
type Approver func(ctx context.Context, message []byte) error

// AutoApprove signs every request immediately
func AutoApprove(ctx context.Context, message []byte) error {
	return ctx.Err()
}

// Option configures a wallet
type Option func(*config)

type config struct {
	approve Approver
}

// WithApprover sets the confirmation step run before each signature
func WithApprover(approve Approver) Option {
	return func(c *config) {
		c.approve = approve
	}
}

func newConfig(opts []Option) config {
	cfg := config{approve: AutoApprove}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// VerifierFor picks the signature scheme from the shape of the address
func VerifierFor(address string) ports.SignatureVerifier {
	if strings.HasPrefix(address, "0x") && common.IsHexAddress(address) {
		return EthereumVerifier{}
	}
	return Ed25519Verifier{}
}
