package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/layer-3/govdash/adapters/authapi"
	"github.com/layer-3/govdash/adapters/events"
	"github.com/layer-3/govdash/adapters/store"
	"github.com/layer-3/govdash/adapters/tokenizer"
	"github.com/layer-3/govdash/adapters/wallet"
	"github.com/layer-3/govdash/cache"
	"github.com/layer-3/govdash/config"
	"github.com/layer-3/govdash/ports"
	"github.com/layer-3/govdash/service"
	"github.com/redis/go-redis/v9"
)

// tokenTTL bounds how long a token persisted in Redis outlives its last write
const tokenTTL = 30 * 24 * time.Hour

// app holds the wired dashboard client
type app struct {
	ctrl      *service.AuthController
	watchlist *service.WatchlistService
	bus       *events.Bus
	cache     *cache.Cache
	redis     *redis.Client
}

func (a *app) Close() {
	a.ctrl.Close()
	a.cache.Close()
	if err := a.bus.Close(); err != nil {
		slog.Warn("failed to close event bus", "error", err)
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func newRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func newWallet(cfg *config.Config, logger *slog.Logger, opts ...wallet.Option) (ports.Wallet, error) {
	switch cfg.WalletKind {
	case config.WalletEthereum:
		if cfg.WalletKey == "" {
			logger.Warn("no wallet key configured, using an ephemeral ethereum key")
			return wallet.GenerateEthereumWallet(opts...)
		}
		key, err := wallet.ParseEthereumKey(cfg.WalletKey)
		if err != nil {
			return nil, err
		}
		return wallet.NewEthereumWallet(key, opts...), nil
	default:
		if cfg.WalletKey == "" {
			logger.Warn("no wallet key configured, using an ephemeral keypair")
			return wallet.GenerateKeypairWallet(opts...)
		}
		key, err := wallet.ParseKeypair(cfg.WalletKey)
		if err != nil {
			return nil, err
		}
		return wallet.NewKeypairWallet(key, opts...), nil
	}
}

// newApp wires the controller. With a Redis URL the token and the event bus
// live in Redis so several dashboard processes share one session.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	w, err := newWallet(cfg, logger)
	if err != nil {
		return nil, err
	}

	wmLogger := watermill.NewSlogLogger(logger)
	var tokens ports.TokenStore
	if cfg.RedisURL != "" {
		if a.redis, err = newRedisClient(cfg.RedisURL); err != nil {
			return nil, err
		}
		if err := a.redis.Ping(ctx).Err(); err != nil {
			_ = a.redis.Close()
			return nil, fmt.Errorf("failed to reach Redis: %w", err)
		}
		tokens = store.NewRedisTokenStore(a.redis, cfg.WalletKind, tokenTTL)
		if a.bus, err = events.NewRedisBus(a.redis, "govdash-"+watermill.NewShortUUID(), wmLogger); err != nil {
			_ = a.redis.Close()
			return nil, err
		}
	} else {
		tokens = store.NewFileTokenStore(cfg.TokenFile)
		a.bus = events.NewInProcessBus(wmLogger)
	}

	client, err := authapi.NewClient(cfg.APIURL, authapi.WithTokenStore(tokens))
	if err != nil {
		return nil, err
	}

	a.cache = cache.New(cache.Config{
		StaleTime: cfg.CacheStale,
		Retries:   cfg.CacheRetries,
		Logger:    logger,
	})

	opts := service.DefaultOptions()
	opts.Countdown = cfg.Countdown
	opts.TickInterval = cfg.TickInterval
	opts.RestorePolicy = service.RestorePolicy(cfg.RestorePolicy)
	opts.Logger = logger

	a.ctrl = service.NewAuthController(service.Dependencies{
		Wallet:    w,
		AuthAPI:   client,
		DaoAPI:    client,
		Tokens:    tokens,
		Cache:     a.cache,
		Events:    events.NewWatermillPublisher(a.bus.Publisher),
		Inspector: tokenizer.NewJWTInspector(),
	}, opts)
	a.watchlist = service.NewWatchlistService(client, a.cache)

	return a, nil
}
