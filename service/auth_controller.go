package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/layer-3/govdash/cache"
	"github.com/layer-3/govdash/core"
	"github.com/layer-3/govdash/ports"
	"github.com/mr-tron/base58"
)

// Dependencies are the collaborators of the AuthController
type Dependencies struct {
	Wallet    ports.Wallet
	AuthAPI   ports.AuthAPI
	DaoAPI    ports.DaoAPI
	Tokens    ports.TokenStore
	Cache     *cache.Cache
	Events    ports.EventPublisher
	Inspector ports.TokenInspector // optional, used by RestoreExpiry
}

// AuthController owns the wallet authentication state machine: challenge, sign,
// verify, the post-auth countdown and the hand-over to the discovery modal.
// All state changes go through its methods; callers only see Snapshots.
type AuthController struct {
	wallet    ports.Wallet
	authAPI   ports.AuthAPI
	daoAPI    ports.DaoAPI
	tokens    ports.TokenStore
	cache     *cache.Cache
	events    ports.EventPublisher
	inspector ports.TokenInspector
	opts      Options
	logger    *slog.Logger

	mu             sync.Mutex
	session        core.AuthSession
	ui             core.UIState
	authenticating bool
	// generation changes on every reset; work started for an older generation is discarded
	generation  uint64
	stopWaiting context.CancelFunc

	lifetime context.Context
	shutdown context.CancelFunc
	wg       sync.WaitGroup
}

// NewAuthController creates a controller in the disconnected state
func NewAuthController(deps Dependencies, opts Options) *AuthController {
	opts = opts.normalized()
	events := deps.Events
	if events == nil {
		events = nopPublisher{}
	}
	lifetime, shutdown := context.WithCancel(context.Background())

	return &AuthController{
		wallet:    deps.Wallet,
		authAPI:   deps.AuthAPI,
		daoAPI:    deps.DaoAPI,
		tokens:    deps.Tokens,
		cache:     deps.Cache,
		events:    events,
		inspector: deps.Inspector,
		opts:      opts,
		logger:    opts.Logger.With("component", "auth"),
		lifetime:  lifetime,
		shutdown:  shutdown,
	}
}

// Connect connects the wallet and restores a persisted session for it
func (c *AuthController) Connect(ctx context.Context) error {
	if err := c.wallet.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect wallet: %w", err)
	}
	return c.Restore(ctx)
}

// Restore reconciles the in-memory session with the token store. A persisted
// token and a connected wallet mark the session authenticated without a new
// challenge; a missing token drops an authenticated session and disconnects the wallet.
func (c *AuthController) Restore(ctx context.Context) error {
	token, err := c.tokens.Get(ctx)
	if err != nil && !errors.Is(err, core.ErrTokenNotFound) {
		return fmt.Errorf("failed to read token: %w", err)
	}

	c.mu.Lock()
	if token == "" {
		if !c.session.IsAuthenticated {
			c.mu.Unlock()
			return nil
		}
		address := c.session.Address
		c.resetLocked()
		c.mu.Unlock()

		c.cache.Clear()
		c.logger.Info("session dropped, token no longer present", "address", address)
		c.publish(ctx, core.EventSessionDropped, address, "token missing")
		if err := c.wallet.Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to disconnect wallet: %w", err)
		}
		return nil
	}

	if c.session.IsAuthenticated || c.authenticating || !c.wallet.Connected() {
		c.mu.Unlock()
		return nil
	}

	address := c.wallet.PublicKey()
	if reason := c.rejectPersistedToken(token, address); reason != "" {
		c.mu.Unlock()
		c.logger.Info("discarding persisted token", "address", address, "reason", reason)
		if err := c.tokens.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear token: %w", err)
		}
		return nil
	}

	c.session = core.AuthSession{IsAuthenticated: true, Token: token, Address: address}
	c.fetchAssociatedDaosLocked(address)
	c.mu.Unlock()

	c.logger.Info("session restored", "address", address)
	c.publish(ctx, core.EventSessionRestored, address, "")
	return nil
}

// rejectPersistedToken returns why token must not be restored, or "" to accept it
func (c *AuthController) rejectPersistedToken(token, address string) string {
	if c.opts.RestorePolicy != RestoreExpiry || c.inspector == nil {
		return ""
	}
	info, err := c.inspector.Inspect(token)
	if err != nil {
		// opaque token, nothing to check locally
		return ""
	}
	if info.Expired(c.opts.Now()) {
		return "token expired"
	}
	if info.Subject != "" && address != "" && info.Subject != address {
		return "token issued to another wallet"
	}
	return ""
}

// StartAuthentication runs challenge, signature and verify for the connected
// wallet. A call made while another one is in flight returns nil immediately.
// Any failure resets the session completely and is returned to the caller.
func (c *AuthController) StartAuthentication(ctx context.Context) error {
	c.mu.Lock()
	if c.authenticating {
		c.mu.Unlock()
		return nil
	}
	if err := c.checkWallet(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.authenticating = true
	gen := c.generation
	address := c.wallet.PublicKey()
	c.mu.Unlock()

	c.logger.Debug("authentication started", "address", address)

	token, err := c.authenticate(ctx, address)
	if err == nil {
		if serr := c.tokens.Set(ctx, token); serr != nil {
			err = fmt.Errorf("failed to persist token: %w", serr)
		}
	}
	if err != nil {
		c.failAuthentication(ctx, gen, address, err)
		return err
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.discardToken(ctx, token)
		return core.ErrSessionSuperseded
	}
	c.authenticating = false
	c.session = core.AuthSession{IsAuthenticated: true, Token: token, Address: address}
	c.ui = core.UIState{SuccessModalOpen: true, Countdown: c.opts.Countdown}
	query := c.fetchAssociatedDaosLocked(address)
	c.startCountdownLocked(gen, query)
	c.mu.Unlock()

	c.logger.Info("wallet authenticated", "address", address)
	c.publish(ctx, core.EventAuthenticated, address, "")
	return nil
}

func (c *AuthController) checkWallet() error {
	if !c.wallet.Connected() {
		return core.ErrWalletNotConnected
	}
	if !c.wallet.CanSign() {
		return core.ErrSignerUnavailable
	}
	if c.wallet.PublicKey() == "" {
		return core.ErrMissingAddress
	}
	return nil
}

// authenticate performs the three ordered steps. Verify is never retried here.
func (c *AuthController) authenticate(ctx context.Context, address string) (string, error) {
	challenge, err := c.authAPI.Challenge(ctx, address)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrChallengeFailed, err)
	}

	signature, err := c.wallet.SignMessage(ctx, []byte(challenge))
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrSignatureRejected, err)
	}

	token, err := c.authAPI.Verify(ctx, ports.VerifyRequest{
		WalletAddress: address,
		Challenge:     challenge,
		Signature:     base58.Encode(signature),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrVerifyFailed, err)
	}
	return token, nil
}

func (c *AuthController) failAuthentication(ctx context.Context, gen uint64, address string, cause error) {
	c.mu.Lock()
	if c.generation != gen {
		// a disconnect already reset everything and cleared the guard
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	c.mu.Unlock()

	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.Error("failed to clear token after failed authentication", "error", err)
	}
	c.logger.Warn("authentication failed", "address", address, "error", cause)
	c.publish(ctx, core.EventAuthFailed, address, cause.Error())
}

// discardToken removes token from the store unless a newer session replaced it
func (c *AuthController) discardToken(ctx context.Context, token string) {
	stored, err := c.tokens.Get(ctx)
	if err != nil || stored != token {
		return
	}
	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.Error("failed to clear superseded token", "error", err)
	}
}

// Disconnect tears down the wallet connection and every piece of session state
func (c *AuthController) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	address := c.session.Address
	if address == "" {
		address = c.wallet.PublicKey()
	}
	c.resetLocked()
	c.mu.Unlock()

	c.cache.Clear()

	var errs []error
	if err := c.wallet.Disconnect(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to disconnect wallet: %w", err))
	}
	if err := c.tokens.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to clear token: %w", err))
	}

	c.logger.Info("wallet disconnected", "address", address)
	c.publish(ctx, core.EventDisconnected, address, "")
	return errors.Join(errs...)
}

// HandleUnauthorized drops the session after the API rejected its token. The
// wallet stays connected so the user can authenticate again.
func (c *AuthController) HandleUnauthorized(ctx context.Context) error {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()
	return c.dropSession(ctx, gen, "token rejected by api")
}

func (c *AuthController) dropSession(ctx context.Context, gen uint64, reason string) error {
	c.mu.Lock()
	if c.generation != gen || !c.session.IsAuthenticated {
		c.mu.Unlock()
		return nil
	}
	address := c.session.Address
	c.resetLocked()
	c.mu.Unlock()

	c.cache.Clear()
	c.logger.Warn("session dropped", "address", address, "reason", reason)
	c.publish(ctx, core.EventSessionDropped, address, reason)

	if err := c.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// CloseSuccessModal dismisses the success screen early. The countdown stops
// where it is and the discovery modal is not opened for this session.
func (c *AuthController) CloseSuccessModal() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ui.SuccessModalOpen {
		return
	}
	c.ui.SuccessModalOpen = false
	c.stopWaitingLocked()
}

// CloseDiscovery dismisses the discovery modal
func (c *AuthController) CloseDiscovery() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ui.DiscoveryModalOpen = false
}

// Snapshot returns a copy of the current state
func (c *AuthController) Snapshot() core.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	connected := c.wallet.Connected()
	snap := core.Snapshot{
		WalletConnected:    connected,
		Address:            c.session.Address,
		IsAuthenticated:    c.session.IsAuthenticated,
		Authenticating:     c.authenticating,
		SuccessModalOpen:   c.ui.SuccessModalOpen,
		DiscoveryModalOpen: c.ui.DiscoveryModalOpen,
		Countdown:          c.ui.Countdown,
	}
	if snap.Address == "" && connected {
		snap.Address = c.wallet.PublicKey()
	}

	switch {
	case c.authenticating:
		snap.Stage = core.StageAuthenticating
	case c.session.IsAuthenticated && c.ui.SuccessModalOpen:
		snap.Stage = core.StageWaiting
	case c.session.IsAuthenticated && c.ui.DiscoveryModalOpen:
		snap.Stage = core.StageDiscovering
	case c.session.IsAuthenticated:
		snap.Stage = core.StageSteady
	case connected:
		snap.Stage = core.StageConnected
	default:
		snap.Stage = core.StageDisconnected
	}
	return snap
}

// Close stops the countdown and background work. The controller is unusable afterwards.
func (c *AuthController) Close() {
	c.shutdown()
	c.wg.Wait()
}

// resetLocked returns session and UI state to their initial values and clears the guard
func (c *AuthController) resetLocked() {
	c.stopWaitingLocked()
	c.session = core.AuthSession{}
	c.ui = core.UIState{}
	c.authenticating = false
	c.generation++
}

func (c *AuthController) stopWaitingLocked() {
	if c.stopWaiting != nil {
		c.stopWaiting()
		c.stopWaiting = nil
	}
}

// fetchAssociatedDaosLocked starts the identity scoped fetch that runs next to the countdown
func (c *AuthController) fetchAssociatedDaosLocked(address string) *cache.Query {
	gen := c.generation
	return c.cache.Fetch(AssociatedDaosKey(address), func(ctx context.Context) (any, error) {
		daos, err := c.daoAPI.AssociatedDaos(ctx)
		if err != nil {
			if errors.Is(err, core.ErrUnauthorized) {
				if derr := c.dropSession(context.Background(), gen, "token rejected by api"); derr != nil {
					c.logger.Error("failed to drop session", "error", derr)
				}
			}
			return nil, err
		}
		c.cache.Invalidate(c.opts.InvalidateOnDiscovery...)
		return daos, nil
	})
}

func (c *AuthController) publish(ctx context.Context, eventType core.AuthEventType, address, reason string) {
	event := core.AuthEvent{
		ID:      uuid.NewString(),
		Type:    eventType,
		Address: address,
		Reason:  reason,
		At:      c.opts.Now(),
	}
	if err := c.events.PublishAuthEvent(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Warn("failed to publish auth event", "type", eventType, "error", err)
	}
}

type nopPublisher struct{}

func (nopPublisher) PublishAuthEvent(ctx context.Context, event core.AuthEvent) error {
	return nil
}
