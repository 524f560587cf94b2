package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/layer-3/govdash/adapters/store"
	"github.com/layer-3/govdash/adapters/tokenizer"
	"github.com/layer-3/govdash/cache"
	"github.com/layer-3/govdash/core"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAuthenticationSuccess(t *testing.T) {
	h := newHarness(t)
	h.authenticate(t)

	snap := h.ctrl.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.False(t, snap.Authenticating)
	assert.True(t, snap.SuccessModalOpen)
	assert.False(t, snap.DiscoveryModalOpen)
	assert.Equal(t, core.StageWaiting, snap.Stage)
	assert.Equal(t, "token-for-"+h.wallet.PublicKey(), h.storedToken())
	assert.Equal(t, int64(1), h.authAPI.challengeCalls.Load())
	assert.Equal(t, int64(1), h.authAPI.verifyCalls.Load())
	assert.Contains(t, h.events.types(), core.EventAuthenticated)
}

func TestStartAuthenticationIsGuarded(t *testing.T) {
	signing := make(chan struct{})
	approve := make(chan struct{})
	var once sync.Once
	h := newHarness(t, withApprover(func(ctx context.Context, message []byte) error {
		once.Do(func() { close(signing) })
		<-approve
		return nil
	}))
	h.connect(t)

	first := make(chan error, 1)
	go func() { first <- h.ctrl.StartAuthentication(context.Background()) }()

	<-signing
	assert.Equal(t, core.StageAuthenticating, h.ctrl.Snapshot().Stage)

	// the second call returns at once without queueing
	require.NoError(t, h.ctrl.StartAuthentication(context.Background()))

	close(approve)
	require.NoError(t, <-first)

	assert.Equal(t, int64(1), h.authAPI.challengeCalls.Load())
	assert.Equal(t, int64(1), h.authAPI.verifyCalls.Load())
	assert.True(t, h.ctrl.Snapshot().IsAuthenticated)
}

func TestStartAuthenticationPreconditions(t *testing.T) {
	h := newHarness(t)

	err := h.ctrl.StartAuthentication(context.Background())
	require.ErrorIs(t, err, core.ErrWalletNotConnected)
	assert.Zero(t, h.authAPI.challengeCalls.Load(), "no network call before the wallet is ready")

	// the guard is not left behind by a precondition failure
	h.connect(t)
	require.NoError(t, h.ctrl.StartAuthentication(context.Background()))
}

func TestStartAuthenticationWithoutSigner(t *testing.T) {
	h := newHarness(t, withKey([]byte("not a key")))
	h.connect(t)

	err := h.ctrl.StartAuthentication(context.Background())
	require.ErrorIs(t, err, core.ErrSignerUnavailable)
	assert.Zero(t, h.authAPI.challengeCalls.Load())
}

func TestVerifyFailureIsAtomic(t *testing.T) {
	h := newHarness(t)
	h.authAPI.verifyErr = errAPIDown
	h.connect(t)

	err := h.ctrl.StartAuthentication(context.Background())
	require.ErrorIs(t, err, core.ErrVerifyFailed)
	require.ErrorIs(t, err, errAPIDown)

	snap := h.ctrl.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, snap.Authenticating)
	assert.False(t, snap.SuccessModalOpen)
	assert.Equal(t, core.StageConnected, snap.Stage)
	assert.Empty(t, h.storedToken())
	assert.Equal(t, int64(1), h.authAPI.challengeCalls.Load())
	assert.Equal(t, int64(1), h.authAPI.verifyCalls.Load(), "verify is not retried")
	assert.Zero(t, h.daoAPI.calls.Load(), "no background fetch for a failed attempt")
	assert.Contains(t, h.events.types(), core.EventAuthFailed)

	// a new attempt is possible once the guard is cleared
	h.authAPI.verifyErr = nil
	require.NoError(t, h.ctrl.StartAuthentication(context.Background()))
	assert.True(t, h.ctrl.Snapshot().IsAuthenticated)
}

func TestChallengeFailureUnwinds(t *testing.T) {
	h := newHarness(t)
	h.authAPI.challengeErr = errAPIDown
	h.connect(t)

	err := h.ctrl.StartAuthentication(context.Background())
	require.ErrorIs(t, err, core.ErrChallengeFailed)
	assert.Zero(t, h.authAPI.verifyCalls.Load())
	assert.False(t, h.ctrl.Snapshot().IsAuthenticated)
}

func TestRejectedSignatureUnwinds(t *testing.T) {
	h := newHarness(t, withApprover(func(ctx context.Context, message []byte) error {
		return assert.AnError
	}))
	h.connect(t)

	err := h.ctrl.StartAuthentication(context.Background())
	require.ErrorIs(t, err, core.ErrSignatureRejected)
	require.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, h.authAPI.verifyCalls.Load())
	assert.Empty(t, h.storedToken())
	assert.Equal(t, core.StageConnected, h.ctrl.Snapshot().Stage)
}

func TestCountdownIsMonotonic(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h := newHarness(t, withHeldDaos(release))
	h.authenticate(t)

	last := h.ctrl.Snapshot().Countdown
	require.Equal(t, core.DefaultCountdown, last)

	deadline := time.Now().Add(2 * time.Second)
	for last > 0 && time.Now().Before(deadline) {
		current := h.ctrl.Snapshot().Countdown
		require.LessOrEqual(t, current, last, "countdown went up")
		require.GreaterOrEqual(t, current, 0)
		last = current
		time.Sleep(time.Millisecond)
	}
	require.Zero(t, last)

	// it stays at zero while discovery waits for the fetch
	assert.Never(t, func() bool {
		return h.ctrl.Snapshot().Countdown != 0
	}, 5*testTick, testTick)
}

func TestCloseSuccessModalStopsTicking(t *testing.T) {
	h := newHarness(t, withOptions(func(o *Options) { o.TickInterval = 20 * time.Millisecond }))
	h.authenticate(t)

	require.Eventually(t, func() bool {
		return h.ctrl.Snapshot().Countdown < core.DefaultCountdown
	}, time.Second, time.Millisecond)

	h.ctrl.CloseSuccessModal()
	frozen := h.ctrl.Snapshot().Countdown
	assert.Greater(t, frozen, 0)

	assert.Never(t, func() bool {
		snap := h.ctrl.Snapshot()
		return snap.Countdown != frozen || snap.DiscoveryModalOpen
	}, 15*20*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, core.StageSteady, h.ctrl.Snapshot().Stage)
}

func TestDiscoveryWaitsForSlowFetch(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, withHeldDaos(release))
	h.authenticate(t)

	require.Eventually(t, func() bool {
		return h.ctrl.Snapshot().Countdown == 0
	}, 2*time.Second, time.Millisecond)

	// countdown is done but the fetch is still pending
	assert.Never(t, func() bool {
		return h.ctrl.Snapshot().DiscoveryModalOpen
	}, 50*time.Millisecond, 5*time.Millisecond)
	snap := h.ctrl.Snapshot()
	assert.True(t, snap.SuccessModalOpen)
	assert.Equal(t, core.StageWaiting, snap.Stage)

	close(release)

	h.waitStage(t, core.StageDiscovering)
	snap = h.ctrl.Snapshot()
	assert.False(t, snap.SuccessModalOpen)
	assert.True(t, snap.DiscoveryModalOpen)
	assert.Contains(t, h.events.types(), core.EventDiscoveryOpened)
}

func TestDiscoveryWaitsForCountdownWhenFetchIsFast(t *testing.T) {
	h := newHarness(t, withOptions(func(o *Options) { o.TickInterval = 20 * time.Millisecond }))
	h.authenticate(t)

	address := h.wallet.PublicKey()
	require.Eventually(t, func() bool {
		q := h.cache.Peek(AssociatedDaosKey(address))
		return q != nil && q.Settled()
	}, time.Second, time.Millisecond)

	// fetch settled early; the countdown still paces the transition
	snap := h.ctrl.Snapshot()
	require.Greater(t, snap.Countdown, 0)
	assert.False(t, snap.DiscoveryModalOpen)
	assert.True(t, snap.SuccessModalOpen)

	h.waitStage(t, core.StageDiscovering)
	assert.Zero(t, h.ctrl.Snapshot().Countdown)
}

func TestFetchErrorStillOpensDiscovery(t *testing.T) {
	h := newHarness(t, withDaoError(errAPIDown))
	h.authenticate(t)

	h.waitStage(t, core.StageDiscovering)
	view := h.ctrl.Discovery()
	assert.True(t, view.Open)
	assert.Equal(t, cache.StatusError, view.Status)
	assert.False(t, view.Found)
	assert.Equal(t, noDaosMessage, view.Message)
}

func TestZeroResultDiscovery(t *testing.T) {
	h := newHarness(t, withDaos(&core.AssociatedDaos{Count: 0, Result: []core.DaoMembership{}}))
	h.authenticate(t)
	h.waitStage(t, core.StageDiscovering)

	view := h.ctrl.Discovery()
	assert.True(t, view.Open)
	assert.Equal(t, cache.StatusSuccess, view.Status)
	assert.False(t, view.Found)
	assert.Zero(t, view.Count)
	assert.Equal(t, "No DAOs found for this wallet", view.Message)
	assert.NotNil(t, view.Daos)
}

func TestFoundDiscovery(t *testing.T) {
	h := newHarness(t)
	h.authenticate(t)
	h.waitStage(t, core.StageDiscovering)

	view := h.ctrl.Discovery()
	assert.True(t, view.Found)
	assert.Equal(t, 2, view.Count)
	assert.Len(t, view.Daos, 2)
	assert.Equal(t, "104.5", view.TotalDeposit.String())
	assert.Equal(t, "2 DAOs found, added to your watchlist", view.Message)

	h.ctrl.CloseDiscovery()
	assert.Equal(t, core.StageSteady, h.ctrl.Snapshot().Stage)
	assert.Equal(t, int64(1), h.daoAPI.calls.Load(), "discovery reads the cache only")
}

func TestFoundDaosMessage(t *testing.T) {
	assert.Equal(t, "1 DAO found, added to your watchlist", foundDaosMessage(1))
	assert.Equal(t, "3 DAOs found, added to your watchlist", foundDaosMessage(3))
}

func TestDiscoveryInvalidatesDeclaredKeys(t *testing.T) {
	h := newHarness(t)
	watchlist := h.cache.Fetch(KeyWatchlist, func(ctx context.Context) (any, error) { return "old", nil })
	other := h.cache.Fetch("proposals", func(ctx context.Context) (any, error) { return "kept", nil })
	<-watchlist.Done()
	<-other.Done()

	h.authenticate(t)
	require.Eventually(t, func() bool {
		q := h.cache.Peek(AssociatedDaosKey(h.wallet.PublicKey()))
		return q != nil && q.Settled()
	}, time.Second, time.Millisecond)

	fresh := func(ctx context.Context) (any, error) { return "new", nil }
	assert.NotSame(t, watchlist, h.cache.Fetch(KeyWatchlist, fresh), "watchlist must be invalidated")
	assert.Same(t, other, h.cache.Fetch("proposals", fresh), "keys outside the contract stay cached")
}

func TestDisconnectClearsEverything(t *testing.T) {
	tokens := store.NewMemoryTokenStore()
	h := newHarness(t, withTokens(tokens))
	h.authenticate(t)
	h.waitStage(t, core.StageDiscovering)
	require.NotZero(t, h.cache.Len())

	require.NoError(t, h.ctrl.Disconnect(context.Background()))

	snap := h.ctrl.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, snap.SuccessModalOpen)
	assert.False(t, snap.DiscoveryModalOpen)
	assert.Zero(t, snap.Countdown)
	assert.Equal(t, core.StageDisconnected, snap.Stage)
	assert.False(t, h.wallet.Connected())
	assert.Empty(t, h.storedToken())
	assert.Zero(t, h.cache.Len())
	assert.Contains(t, h.events.types(), core.EventDisconnected)

	// a fresh mount with the same store does not restore a session
	next := newHarness(t, withTokens(tokens))
	next.connect(t)
	assert.False(t, next.ctrl.Snapshot().IsAuthenticated)
	assert.Equal(t, core.StageConnected, next.ctrl.Snapshot().Stage)
}

func TestDisconnectDuringWaitingStopsCountdown(t *testing.T) {
	h := newHarness(t)
	h.authenticate(t)
	require.NoError(t, h.ctrl.Disconnect(context.Background()))

	assert.Never(t, func() bool {
		snap := h.ctrl.Snapshot()
		return snap.Countdown != 0 || snap.DiscoveryModalOpen || snap.SuccessModalOpen
	}, 15*testTick, testTick)
}

func TestDisconnectDuringAuthenticationSupersedesAttempt(t *testing.T) {
	signing := make(chan struct{})
	approve := make(chan struct{})
	h := newHarness(t, withApprover(func(ctx context.Context, message []byte) error {
		close(signing)
		<-approve
		return nil
	}))
	h.connect(t)

	result := make(chan error, 1)
	go func() { result <- h.ctrl.StartAuthentication(context.Background()) }()
	<-signing

	require.NoError(t, h.ctrl.Disconnect(context.Background()))
	assert.False(t, h.ctrl.Snapshot().Authenticating, "disconnect clears the guard")

	close(approve)
	err := <-result
	// the wallet is disconnected by then, so signing itself may fail first
	require.Error(t, err)
	assert.False(t, h.ctrl.Snapshot().IsAuthenticated)
	assert.Empty(t, h.storedToken())
}

func TestRestoreWithPersistedToken(t *testing.T) {
	tokens := store.NewMemoryTokenStore()
	require.NoError(t, tokens.Set(context.Background(), "opaque-token"))

	h := newHarness(t, withTokens(tokens))
	h.connect(t)

	snap := h.ctrl.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.False(t, snap.SuccessModalOpen, "restore does not replay the success screen")
	assert.Equal(t, core.StageSteady, snap.Stage)
	assert.Zero(t, h.authAPI.challengeCalls.Load())
	assert.Contains(t, h.events.types(), core.EventSessionRestored)

	require.Eventually(t, func() bool {
		return h.daoAPI.calls.Load() == 1
	}, time.Second, time.Millisecond, "restore starts the background fetch")
}

func TestRestoreNeedsConnectedWallet(t *testing.T) {
	tokens := store.NewMemoryTokenStore()
	require.NoError(t, tokens.Set(context.Background(), "opaque-token"))

	h := newHarness(t, withTokens(tokens))
	require.NoError(t, h.ctrl.Restore(context.Background()))
	assert.False(t, h.ctrl.Snapshot().IsAuthenticated)
	assert.Equal(t, "opaque-token", h.storedToken(), "token kept until the wallet connects")
}

func TestRestoreDropsSessionWhenTokenDisappears(t *testing.T) {
	h := newHarness(t)
	h.authenticate(t)

	require.NoError(t, h.tokens.Clear(context.Background()))
	require.NoError(t, h.ctrl.Restore(context.Background()))

	snap := h.ctrl.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, snap.SuccessModalOpen)
	assert.Equal(t, core.StageDisconnected, snap.Stage)
	assert.False(t, h.wallet.Connected())
	assert.Contains(t, h.events.types(), core.EventSessionDropped)
}

func TestDiscoveryAfterRestoreWaitsForFetch(t *testing.T) {
	tokens := store.NewMemoryTokenStore()
	require.NoError(t, tokens.Set(context.Background(), "opaque-token"))
	release := make(chan struct{})

	h := newHarness(t, withTokens(tokens), withHeldDaos(release))
	h.connect(t)
	require.True(t, h.ctrl.Snapshot().IsAuthenticated)

	view := h.ctrl.Discovery()
	assert.Equal(t, cache.StatusPending, view.Status)
	assert.False(t, view.Found)
	assert.NotEqual(t, noDaosMessage, view.Message)
	assert.Equal(t, searchingMessage, view.Message)

	close(release)
	q := h.cache.Peek(AssociatedDaosKey(h.wallet.PublicKey()))
	require.NotNil(t, q)
	_, err := q.Wait(context.Background())
	require.NoError(t, err)

	view = h.ctrl.Discovery()
	assert.Equal(t, cache.StatusSuccess, view.Status)
	assert.True(t, view.Found)
	assert.Equal(t, "2 DAOs found, added to your watchlist", view.Message)
}

func TestRestorePolicyExpiry(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	issuer := tokenizer.NewJWTTokenizer(key)

	_, walletKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	address := base58.Encode(walletKey.Public().(ed25519.PublicKey))

	past := time.Now().Add(-2 * time.Hour)
	expired, err := issuer.SessionToAccessToken(&core.Session{ID: "s1", Address: address, IssuedAt: past, ExpiresAt: past.Add(time.Hour)})
	require.NoError(t, err)
	valid, err := issuer.SessionToAccessToken(&core.Session{ID: "s2", Address: address, IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	foreign, err := issuer.SessionToAccessToken(&core.Session{ID: "s3", Address: "someone-else", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	cases := []struct {
		name     string
		policy   RestorePolicy
		token    string
		restored bool
	}{
		{"expired token dropped", RestoreExpiry, expired, false},
		{"valid token restored", RestoreExpiry, valid, true},
		{"token of another wallet dropped", RestoreExpiry, foreign, false},
		{"optimistic keeps expired token", RestoreOptimistic, expired, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tokens := store.NewMemoryTokenStore()
			require.NoError(t, tokens.Set(context.Background(), tc.token))

			h := newHarness(t,
				withTokens(tokens),
				withKey(walletKey),
				withOptions(func(o *Options) { o.RestorePolicy = tc.policy }),
			)
			h.connect(t)

			assert.Equal(t, tc.restored, h.ctrl.Snapshot().IsAuthenticated)
			if !tc.restored {
				assert.Empty(t, h.storedToken(), "rejected token is cleared")
			}
		})
	}
}

func TestUnauthorizedFetchDropsSession(t *testing.T) {
	h := newHarness(t, withDaoError(core.ErrUnauthorized))
	h.authenticate(t)

	h.waitStage(t, core.StageConnected)
	assert.False(t, h.ctrl.Snapshot().IsAuthenticated)
	require.Eventually(t, func() bool { return h.storedToken() == "" }, time.Second, time.Millisecond)
	assert.Contains(t, h.events.types(), core.EventSessionDropped)
}

func TestHandleUnauthorized(t *testing.T) {
	h := newHarness(t)
	h.authenticate(t)

	require.NoError(t, h.ctrl.HandleUnauthorized(context.Background()))
	assert.False(t, h.ctrl.Snapshot().IsAuthenticated)
	assert.True(t, h.wallet.Connected(), "wallet stays connected")
	assert.Empty(t, h.storedToken())
	assert.Zero(t, h.cache.Len())
}

func TestEventSequence(t *testing.T) {
	h := newHarness(t)
	h.authenticate(t)
	h.waitStage(t, core.StageDiscovering)
	require.NoError(t, h.ctrl.Disconnect(context.Background()))

	assert.Equal(t, []core.AuthEventType{
		core.EventAuthenticated,
		core.EventDiscoveryOpened,
		core.EventDisconnected,
	}, h.events.types())
}
