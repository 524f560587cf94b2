package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/govdash/adapters/store"
	"github.com/layer-3/govdash/adapters/tokenizer"
	"github.com/layer-3/govdash/core"
	"github.com/layer-3/govdash/devapi"
	"github.com/layer-3/govdash/ports"
	"github.com/layer-3/govdash/service"
	transport "github.com/layer-3/govdash/transport/http"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the local dashboard API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "listen address", EnvVars: []string{"GOVDASH_LISTEN_ADDR"}},
			&cli.BoolFlag{Name: "connect", Usage: "connect the wallet and restore the session on start", Value: true},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, cleanup, err := setup(c)
			if err != nil {
				return err
			}
			defer cleanup()
			if v := c.String("listen"); v != "" {
				cfg.ListenAddr = v
			}

			a, err := newApp(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if c.Bool("connect") {
				if err := a.ctrl.Connect(c.Context); err != nil {
					return err
				}
			}

			gin.SetMode(gin.ReleaseMode)
			router := transport.SetupRouter(a.ctrl, a.watchlist, a.bus.Subscriber, logger)
			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           transport.WithCORS(router, cfg.CORSOrigins),
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("dashboard API listening", "addr", cfg.ListenAddr, "api", cfg.APIURL)
			return runServer(c.Context, srv)
		},
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "authenticate the configured wallet and show the discovered DAOs",
		Action: func(c *cli.Context) error {
			cfg, logger, cleanup, err := setup(c)
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := newApp(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ctrl.Connect(c.Context); err != nil {
				return err
			}
			snap := a.ctrl.Snapshot()
			if !snap.IsAuthenticated {
				if err := a.ctrl.StartAuthentication(c.Context); err != nil {
					return err
				}
				fmt.Printf("Signed in as %s\n", a.ctrl.Snapshot().Address)
				if err := waitForDiscovery(c.Context, a.ctrl.Snapshot); err != nil {
					return err
				}
			} else {
				fmt.Printf("Session restored for %s\n", snap.Address)
				// the fetch started by the restore may still be in flight; an error renders as no DAOs
				if q := a.cache.Peek(service.AssociatedDaosKey(snap.Address)); q != nil {
					if _, err := q.Wait(c.Context); err != nil && c.Context.Err() != nil {
						return c.Context.Err()
					}
				}
			}

			view := a.ctrl.Discovery()
			fmt.Println(view.Message)
			for _, dao := range view.Daos {
				fmt.Printf("  %-24s %-44s %s\n", dao.Name, dao.Realm, dao.TokenDeposit.String())
			}
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "disconnect the wallet and forget the stored token",
		Action: func(c *cli.Context) error {
			cfg, logger, cleanup, err := setup(c)
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := newApp(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.ctrl.Disconnect(c.Context)
		},
	}
}

func devapiCommand() *cli.Command {
	return &cli.Command{
		Name:  "devapi",
		Usage: "run a local governance API that issues challenges and serves fixture DAOs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "listen address", EnvVars: []string{"GOVDASH_DEVAPI_ADDR"}},
			&cli.StringFlag{Name: "fixtures", Usage: "JSON file of DAO memberships per address", EnvVars: []string{"GOVDASH_DEVAPI_FIXTURES"}},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, cleanup, err := setup(c)
			if err != nil {
				return err
			}
			defer cleanup()
			if v := c.String("listen"); v != "" {
				cfg.DevAPIAddr = v
			}
			if v := c.String("fixtures"); v != "" {
				cfg.DevAPIFixtures = v
			}

			fixtures := devapi.Fixtures{}
			if cfg.DevAPIFixtures != "" {
				if fixtures, err = devapi.LoadFixtures(cfg.DevAPIFixtures); err != nil {
					return err
				}
			}

			// Tokens are signed with a fresh key per run, so restarts invalidate sessions.
			signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
			if err != nil {
				return err
			}

			var nonces ports.NonceStore
			if cfg.RedisURL != "" {
				client, err := newRedisClient(cfg.RedisURL)
				if err != nil {
					return err
				}
				defer client.Close()
				nonces = store.NewRedisNonceStore(client)
			} else {
				nonces = store.NewMemoryNonceStore()
			}

			svc := devapi.NewAuthService(tokenizer.NewJWTTokenizer(signKey), nonces,
				devapi.WithFixtures(fixtures),
				devapi.WithLogger(logger.With("component", "devapi")),
			)

			gin.SetMode(gin.ReleaseMode)
			router := devapi.NewRouter(svc, devapi.RouterConfig{
				Middleware: []gin.HandlerFunc{transport.RequestID(), transport.AccessLog(logger)},
			})
			srv := &http.Server{
				Addr:              cfg.DevAPIAddr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("development API listening", "addr", cfg.DevAPIAddr, "fixtures", len(fixtures))
			return runServer(c.Context, srv)
		},
	}
}

// runServer serves until ctx is cancelled, then shuts the server down gracefully
func runServer(ctx context.Context, srv *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// waitForDiscovery blocks until the discovery modal opens or the session ends
func waitForDiscovery(ctx context.Context, snapshot func() core.Snapshot) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		snap := snapshot()
		switch {
		case snap.DiscoveryModalOpen:
			return nil
		case !snap.IsAuthenticated:
			return core.ErrUnauthorized
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
