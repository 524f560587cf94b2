package service

import (
	"context"
	"time"

	"github.com/layer-3/govdash/cache"
	"github.com/layer-3/govdash/core"
)

// startCountdownLocked runs the waiting phase of one authenticated session
func (c *AuthController) startCountdownLocked(gen uint64, query *cache.Query) {
	c.stopWaitingLocked()

	ctx, cancel := context.WithCancel(c.lifetime)
	c.stopWaiting = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.runCountdown(ctx, gen, query)
	}()
}

// runCountdown ticks the countdown to zero and then waits for the associated
// DAOs query to settle. Discovery opens at whichever of the two comes last.
func (c *AuthController) runCountdown(ctx context.Context, gen uint64, query *cache.Query) {
	remaining, ok := c.countdown(gen)
	if !ok {
		return
	}
	if remaining > 0 {
		ticker := time.NewTicker(c.opts.TickInterval)
		defer ticker.Stop()

		for remaining > 0 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if remaining, ok = c.tick(gen); !ok {
				return
			}
		}
	}

	if !query.Settled() {
		c.logger.Debug("countdown finished before associated daos, waiting", "key", query.Key())
	}
	select {
	case <-query.Done():
	case <-ctx.Done():
		return
	}

	c.openDiscovery(ctx, gen)
}

// countdown reads the remaining seconds; ok is false once the phase is over
func (c *AuthController) countdown(gen uint64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen || !c.ui.SuccessModalOpen {
		return 0, false
	}
	return c.ui.Countdown, true
}

// tick decrements the countdown by one, never below zero
func (c *AuthController) tick(gen uint64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen || !c.ui.SuccessModalOpen {
		return 0, false
	}
	if c.ui.Countdown > 0 {
		c.ui.Countdown--
	}
	return c.ui.Countdown, true
}

func (c *AuthController) openDiscovery(ctx context.Context, gen uint64) {
	c.mu.Lock()
	if c.generation != gen || !c.ui.SuccessModalOpen || c.ui.Countdown != 0 {
		c.mu.Unlock()
		return
	}
	c.ui.SuccessModalOpen = false
	c.ui.DiscoveryModalOpen = true
	c.stopWaiting = nil
	address := c.session.Address
	c.mu.Unlock()

	c.logger.Debug("discovery modal opened", "address", address)
	c.publish(ctx, core.EventDiscoveryOpened, address, "")
}
