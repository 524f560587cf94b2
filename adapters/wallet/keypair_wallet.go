package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/layer-3/govdash/core"
	"github.com/mr-tron/base58"
)

// KeypairWallet signs with a local ed25519 keypair and exposes a base58 address
type KeypairWallet struct {
	key       ed25519.PrivateKey
	approve   Approver
	connected bool
	mu        sync.RWMutex
}

// NewKeypairWallet creates a wallet around an existing ed25519 key
func NewKeypairWallet(key ed25519.PrivateKey, opts ...Option) *KeypairWallet {
	cfg := newConfig(opts)
	return &KeypairWallet{key: key, approve: cfg.approve}
}

// GenerateKeypairWallet creates a wallet with a fresh random key
func GenerateKeypairWallet(opts ...Option) (*KeypairWallet, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewKeypairWallet(key, opts...), nil
}

// ParseKeypair decodes a base58 encoded 64 byte secret key or 32 byte seed
func ParseKeypair(encoded string) (ed25519.PrivateKey, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	default:
		return nil, fmt.Errorf("unexpected key length %d", len(raw))
	}
}

// Connect makes the wallet available for signing
func (w *KeypairWallet) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = true
	return nil
}

// Disconnect detaches the wallet
func (w *KeypairWallet) Disconnect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = false
	return nil
}

// Connected reports whether the wallet is connected
func (w *KeypairWallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// CanSign reports whether the wallet holds a usable key
func (w *KeypairWallet) CanSign() bool {
	return len(w.key) == ed25519.PrivateKeySize
}

// PublicKey returns the base58 address while connected
func (w *KeypairWallet) PublicKey() string {
	if !w.Connected() || !w.CanSign() {
		return ""
	}
	return base58.Encode(w.key.Public().(ed25519.PublicKey))
}

// SignMessage signs message after the approver accepts it
func (w *KeypairWallet) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if !w.Connected() {
		return nil, core.ErrWalletNotConnected
	}
	if err := w.approve(ctx, message); err != nil {
		return nil, err
	}
	return ed25519.Sign(w.key, message), nil
}

// Ed25519Verifier verifies signatures from KeypairWallet
type Ed25519Verifier struct{}

// Verify checks signature over message for a base58 address
func (Ed25519Verifier) Verify(address string, message, signature []byte) error {
	pub, err := base58.Decode(address)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return core.ErrInvalidAddress
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), message, signature) {
		return core.ErrInvalidSignature
	}
	return nil
}
