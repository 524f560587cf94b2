package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/layer-3/govdash/config"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "govdash",
		Usage: "DAO governance dashboard with wallet sign-in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Usage: "dotenv file to load", Value: ".env"},
			&cli.StringFlag{Name: "api-url", Usage: "governance API base URL", EnvVars: []string{"GOVDASH_API_URL"}},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", EnvVars: []string{"GOVDASH_LOG_LEVEL"}},
		},
		Commands: []*cli.Command{
			serveCommand(),
			loginCommand(),
			logoutCommand(),
			devapiCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads the configuration, applies global flag overrides and builds the logger
func setup(c *cli.Context) (*config.Config, *slog.Logger, func(), error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, nil, nil, err
	}
	if v := c.String("api-url"); v != "" {
		cfg.APIURL = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}

	logger, closer, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(logger)

	cleanup := func() {
		if err := closer.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "failed to close log file:", err)
		}
	}
	return cfg, logger, cleanup, nil
}
