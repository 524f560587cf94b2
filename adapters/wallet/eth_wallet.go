package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/govdash/core"
)

// EthereumWallet signs personal messages with a secp256k1 key
type EthereumWallet struct {
	key       *ecdsa.PrivateKey
	approve   Approver
	connected bool
	mu        sync.RWMutex
}

// NewEthereumWallet creates a wallet around an existing key
func NewEthereumWallet(key *ecdsa.PrivateKey, opts ...Option) *EthereumWallet {
	cfg := newConfig(opts)
	return &EthereumWallet{key: key, approve: cfg.approve}
}

// GenerateEthereumWallet creates a wallet with a fresh random key
func GenerateEthereumWallet(opts ...Option) (*EthereumWallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return NewEthereumWallet(key, opts...), nil
}

// ParseEthereumKey decodes a hex private key with or without 0x prefix
func ParseEthereumKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse key: %w", err)
	}
	return key, nil
}

// Connect makes the wallet available for signing
func (w *EthereumWallet) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = true
	return nil
}

// Disconnect detaches the wallet
func (w *EthereumWallet) Disconnect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = false
	return nil
}

// Connected reports whether the wallet is connected
func (w *EthereumWallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// CanSign reports whether the wallet holds a key
func (w *EthereumWallet) CanSign() bool {
	return w.key != nil
}

// PublicKey returns the checksummed address while connected
func (w *EthereumWallet) PublicKey() string {
	if !w.Connected() || !w.CanSign() {
		return ""
	}
	return crypto.PubkeyToAddress(w.key.PublicKey).Hex()
}

// SignMessage produces a 65 byte [R || S || V] signature over the EIP-191 text hash
func (w *EthereumWallet) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if !w.Connected() {
		return nil, core.ErrWalletNotConnected
	}
	if err := w.approve(ctx, message); err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(accounts.TextHash(message), w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig, nil
}

// EthereumVerifier verifies signatures from EthereumWallet
type EthereumVerifier struct{}

// Verify recovers the signer of message and compares it with address
func (EthereumVerifier) Verify(address string, message, signature []byte) error {
	if !common.IsHexAddress(address) {
		return core.ErrInvalidAddress
	}
	if len(signature) != crypto.SignatureLength {
		return fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, core.ErrInvalidSignature)
	}

	sig := make([]byte, len(signature))
	copy(sig, signature)
	// Accept the legacy 27/28 recovery id as well
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return fmt.Errorf("failed to recover signer: %w", core.ErrInvalidSignature)
	}
	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(address) {
		return core.ErrInvalidSignature
	}
	return nil
}
