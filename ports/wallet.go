package ports

import "context"

// Wallet is the signing capability of a connected wallet
type Wallet interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Connected() bool
	CanSign() bool

	// PublicKey returns the wallet address, empty while disconnected
	PublicKey() string

	// SignMessage blocks until the holder approves or rejects the request
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// SignatureVerifier checks a signature produced by a Wallet
type SignatureVerifier interface {
	Verify(address string, message, signature []byte) error
}
