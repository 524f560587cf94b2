package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/layer-3/govdash/adapters/store"
	"github.com/layer-3/govdash/adapters/tokenizer"
	"github.com/layer-3/govdash/adapters/wallet"
	"github.com/layer-3/govdash/cache"
	"github.com/layer-3/govdash/core"
	"github.com/layer-3/govdash/ports"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testTick = 10 * time.Millisecond

var errAPIDown = errors.New("api down")

// fakeAuthAPI issues one challenge per call and checks signatures on verify
type fakeAuthAPI struct {
	challengeCalls atomic.Int64
	verifyCalls    atomic.Int64
	verifyErr      error
	challengeErr   error
}

func (f *fakeAuthAPI) Challenge(ctx context.Context, address string) (string, error) {
	n := f.challengeCalls.Add(1)
	if f.challengeErr != nil {
		return "", f.challengeErr
	}
	return fmt.Sprintf("challenge-%s-%d", address, n), nil
}

func (f *fakeAuthAPI) Verify(ctx context.Context, req ports.VerifyRequest) (string, error) {
	f.verifyCalls.Add(1)
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	sig, err := base58.Decode(req.Signature)
	if err != nil {
		return "", err
	}
	if err := wallet.VerifierFor(req.WalletAddress).Verify(req.WalletAddress, []byte(req.Challenge), sig); err != nil {
		return "", err
	}
	return "token-for-" + req.WalletAddress, nil
}

// fakeDaoAPI serves associated DAOs, optionally held back until release is closed
type fakeDaoAPI struct {
	daos    *core.AssociatedDaos
	err     error
	release chan struct{}
	calls   atomic.Int64

	mu        sync.Mutex
	watchlist []core.WatchlistEntry
}

func (f *fakeDaoAPI) AssociatedDaos(ctx context.Context) (*core.AssociatedDaos, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.daos, nil
}

func (f *fakeDaoAPI) Watchlist(ctx context.Context) ([]core.WatchlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.WatchlistEntry(nil), f.watchlist...), nil
}

func (f *fakeDaoAPI) AddToWatchlist(ctx context.Context, realm string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchlist = append(f.watchlist, core.WatchlistEntry{Realm: realm, AddedAt: time.Now()})
	return nil
}

func (f *fakeDaoAPI) RemoveFromWatchlist(ctx context.Context, realm string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.watchlist {
		if e.Realm == realm {
			f.watchlist = append(f.watchlist[:i], f.watchlist[i+1:]...)
			break
		}
	}
	return nil
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []core.AuthEvent
}

func (p *recordingPublisher) PublishAuthEvent(ctx context.Context, event core.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []core.AuthEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]core.AuthEventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type harness struct {
	ctrl    *AuthController
	wallet  *wallet.KeypairWallet
	authAPI *fakeAuthAPI
	daoAPI  *fakeDaoAPI
	tokens  *store.MemoryTokenStore
	cache   *cache.Cache
	events  *recordingPublisher
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	opts     Options
	approver wallet.Approver
	daos     *core.AssociatedDaos
	daoErr   error
	release  chan struct{}
	tokens   *store.MemoryTokenStore
	key      ed25519.PrivateKey
}

func withOptions(fn func(*Options)) harnessOption {
	return func(c *harnessConfig) { fn(&c.opts) }
}

func withApprover(a wallet.Approver) harnessOption {
	return func(c *harnessConfig) { c.approver = a }
}

func withDaos(daos *core.AssociatedDaos) harnessOption {
	return func(c *harnessConfig) { c.daos = daos }
}

func withDaoError(err error) harnessOption {
	return func(c *harnessConfig) { c.daoErr = err }
}

func withHeldDaos(release chan struct{}) harnessOption {
	return func(c *harnessConfig) { c.release = release }
}

func withTokens(tokens *store.MemoryTokenStore) harnessOption {
	return func(c *harnessConfig) { c.tokens = tokens }
}

func withKey(key ed25519.PrivateKey) harnessOption {
	return func(c *harnessConfig) { c.key = key }
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func twoDaos() *core.AssociatedDaos {
	return &core.AssociatedDaos{
		Count: 2,
		Result: []core.DaoMembership{
			{Name: "Mango DAO", Realm: "realm-mango", TokenDeposit: decimal.RequireFromString("100.5")},
			{Name: "Grape", Realm: "realm-grape", TokenDeposit: decimal.RequireFromString("4")},
		},
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	cfg := harnessConfig{
		opts: Options{
			Countdown:    core.DefaultCountdown,
			TickInterval: testTick,
			Logger:       testLogger(),
		},
		approver: wallet.AutoApprove,
		daos:     twoDaos(),
		tokens:   store.NewMemoryTokenStore(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var w *wallet.KeypairWallet
	if cfg.key != nil {
		w = wallet.NewKeypairWallet(cfg.key, wallet.WithApprover(cfg.approver))
	} else {
		var err error
		w, err = wallet.GenerateKeypairWallet(wallet.WithApprover(cfg.approver))
		require.NoError(t, err)
	}

	h := &harness{
		wallet:  w,
		authAPI: &fakeAuthAPI{},
		daoAPI:  &fakeDaoAPI{daos: cfg.daos, err: cfg.daoErr, release: cfg.release},
		tokens:  cfg.tokens,
		cache:   cache.New(cache.Config{Logger: testLogger()}),
		events:  &recordingPublisher{},
	}
	h.ctrl = NewAuthController(Dependencies{
		Wallet:    h.wallet,
		AuthAPI:   h.authAPI,
		DaoAPI:    h.daoAPI,
		Tokens:    h.tokens,
		Cache:     h.cache,
		Events:    h.events,
		Inspector: tokenizer.NewJWTInspector(),
	}, cfg.opts)

	t.Cleanup(func() {
		h.ctrl.Close()
		h.cache.Close()
	})
	return h
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Connect(context.Background()))
}

func (h *harness) authenticate(t *testing.T) {
	t.Helper()
	h.connect(t)
	require.NoError(t, h.ctrl.StartAuthentication(context.Background()))
}

func (h *harness) storedToken() string {
	token, _ := h.tokens.Get(context.Background())
	return token
}

func (h *harness) waitStage(t *testing.T, stage core.Stage) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.ctrl.Snapshot().Stage == stage
	}, 2*time.Second, time.Millisecond, "stage %s not reached", stage)
}
