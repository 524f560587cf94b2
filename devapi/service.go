package devapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/layer-3/govdash/adapters/wallet"
	"github.com/layer-3/govdash/core"
	"github.com/layer-3/govdash/ports"
	"github.com/mr-tron/base58"
)

// AuthService issues challenges and access tokens and serves fixture governance data
type AuthService struct {
	tokenizer ports.Tokenizer
	nonces    ports.NonceStore
	fixtures  Fixtures
	logger    *slog.Logger
	now       func() time.Time

	challengeTTL time.Duration
	accessTTL    time.Duration

	mu         sync.Mutex
	watchlists map[string][]core.WatchlistEntry
}

// Option configures an AuthService
type Option func(*AuthService)

// WithFixtures sets the DAO memberships served per address
func WithFixtures(fixtures Fixtures) Option {
	return func(s *AuthService) { s.fixtures = fixtures }
}

// WithTTLs overrides the challenge and access token lifetimes
func WithTTLs(challenge, access time.Duration) Option {
	return func(s *AuthService) {
		s.challengeTTL = challenge
		s.accessTTL = access
	}
}

// WithLogger sets the service logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *AuthService) { s.logger = logger }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new development auth service
func NewAuthService(tokenizer ports.Tokenizer, nonces ports.NonceStore, opts ...Option) *AuthService {
	s := &AuthService{
		tokenizer:    tokenizer,
		nonces:       nonces,
		fixtures:     Fixtures{},
		logger:       slog.Default(),
		now:          time.Now,
		challengeTTL: 5 * time.Minute,
		accessTTL:    24 * time.Hour,
		watchlists:   make(map[string][]core.WatchlistEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateChallenge generates a new challenge for address. The returned token is
// the exact message the wallet signs.
func (s *AuthService) CreateChallenge(address string) (string, error) {
	if err := validateAddress(address); err != nil {
		return "", err
	}

	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Address:   address,
		Nonce:     hex.EncodeToString(nonceBytes),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}

	token, err := s.tokenizer.ChallengeToToken(challenge)
	if err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}
	return token, nil
}

// Verify checks a signed challenge and issues an access token. A challenge is
// accepted at most once.
func (s *AuthService) Verify(ctx context.Context, req ports.VerifyRequest) (string, error) {
	challenge, err := s.tokenizer.TokenToChallenge(req.Challenge)
	if err != nil {
		return "", err
	}
	if challenge.Address != req.WalletAddress {
		return "", fmt.Errorf("%w: issued for another address", core.ErrInvalidChallenge)
	}

	signature, err := base58.Decode(req.Signature)
	if err != nil || len(signature) == 0 {
		return "", fmt.Errorf("%w: signature is not base58", core.ErrInvalidSignature)
	}
	if err := wallet.VerifierFor(req.WalletAddress).Verify(req.WalletAddress, []byte(req.Challenge), signature); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}

	remaining := challenge.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return "", core.ErrTokenExpired
	}
	fresh, err := s.nonces.Consume(ctx, challenge.ID, remaining)
	if err != nil {
		return "", err
	}
	if !fresh {
		return "", core.ErrChallengeUsed
	}

	now := s.now()
	session := &core.Session{
		ID:        uuid.New().String(),
		Address:   req.WalletAddress,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.accessTTL),
	}
	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", fmt.Errorf("failed to create access token: %w", err)
	}

	s.logger.Info("wallet verified", "address", req.WalletAddress, "session", session.ID)
	return accessToken, nil
}

// ValidateAccessToken parses a bearer token into its session
func (s *AuthService) ValidateAccessToken(accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}
	return session, nil
}

// AssociatedDaos returns the memberships of address and adds each of them to its watchlist
func (s *AuthService) AssociatedDaos(address string) *core.AssociatedDaos {
	memberships := s.fixtures.For(address)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range memberships {
		s.addLocked(address, m.Realm)
	}
	return &core.AssociatedDaos{Count: len(memberships), Result: memberships}
}

// Watchlist returns the realms address tracks, oldest first
func (s *AuthService) Watchlist(address string) []core.WatchlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.WatchlistEntry{}, s.watchlists[address]...)
}

// AddToWatchlist tracks realm for address; adding a tracked realm is a no-op
func (s *AuthService) AddToWatchlist(address, realm string) error {
	realm = strings.TrimSpace(realm)
	if realm == "" {
		return errors.New("realm required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(address, realm)
	return nil
}

// RemoveFromWatchlist stops tracking realm; it reports whether realm was tracked
func (s *AuthService) RemoveFromWatchlist(address, realm string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.watchlists[address]
	for i, e := range entries {
		if e.Realm == realm {
			s.watchlists[address] = append(entries[:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

func (s *AuthService) addLocked(address, realm string) {
	for _, e := range s.watchlists[address] {
		if e.Realm == realm {
			return
		}
	}
	s.watchlists[address] = append(s.watchlists[address], core.WatchlistEntry{
		Realm:   realm,
		Name:    s.fixtures.Name(realm),
		AddedAt: s.now(),
	})
}

// validateAddress accepts a 0x hex address or a base58 encoded ed25519 public key
func validateAddress(address string) error {
	if strings.HasPrefix(address, "0x") {
		if !common.IsHexAddress(address) {
			return core.ErrInvalidAddress
		}
		return nil
	}
	key, err := base58.Decode(address)
	if err != nil || len(key) != 32 {
		return core.ErrInvalidAddress
	}
	return nil
}
