package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/layer-3/govdash/core"
)

// Wallet kinds
const (
	WalletKeypair  = "keypair"
	WalletEthereum = "ethereum"
)

// Config is the runtime configuration of the govdash binary
type Config struct {
	APIURL      string
	ListenAddr  string
	RedisURL    string
	TokenFile   string
	CORSOrigins []string

	WalletKind string
	WalletKey  string

	Countdown     int
	TickInterval  time.Duration
	CacheStale    time.Duration
	CacheRetries  uint
	RestorePolicy string

	DevAPIAddr     string
	DevAPIFixtures string

	Log LogConfig
}

// LogConfig selects where and how logs are written
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // rotated log file, stderr when empty
}

// Load reads .env files (when present) and then the environment
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		APIURL:         getEnv("GOVDASH_API_URL", "http://localhost:9000"),
		ListenAddr:     getEnv("GOVDASH_LISTEN_ADDR", "127.0.0.1:8787"),
		RedisURL:       os.Getenv("GOVDASH_REDIS_URL"),
		TokenFile:      getEnv("GOVDASH_TOKEN_FILE", defaultTokenFile()),
		CORSOrigins:    splitList(os.Getenv("GOVDASH_CORS_ORIGINS")),
		WalletKind:     getEnv("GOVDASH_WALLET_KIND", WalletKeypair),
		WalletKey:      os.Getenv("GOVDASH_WALLET_KEY"),
		RestorePolicy:  getEnv("GOVDASH_RESTORE_POLICY", "expiry"),
		DevAPIAddr:     getEnv("GOVDASH_DEVAPI_ADDR", "127.0.0.1:9000"),
		DevAPIFixtures: os.Getenv("GOVDASH_DEVAPI_FIXTURES"),
		Log: LogConfig{
			Level:  getEnv("GOVDASH_LOG_LEVEL", "info"),
			Format: getEnv("GOVDASH_LOG_FORMAT", "text"),
			File:   os.Getenv("GOVDASH_LOG_FILE"),
		},
	}

	var err error
	if cfg.Countdown, err = getInt("GOVDASH_COUNTDOWN", core.DefaultCountdown); err != nil {
		return nil, err
	}
	if cfg.TickInterval, err = getDuration("GOVDASH_TICK_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheStale, err = getDuration("GOVDASH_CACHE_STALE", 5*time.Minute); err != nil {
		return nil, err
	}
	retries, err := getInt("GOVDASH_CACHE_RETRIES", 1)
	if err != nil {
		return nil, err
	}
	cfg.CacheRetries = uint(max(retries, 0))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have a fixed set of options
func (c *Config) Validate() error {
	switch c.WalletKind {
	case WalletKeypair, WalletEthereum:
	default:
		return fmt.Errorf("unknown wallet kind %q", c.WalletKind)
	}
	switch c.RestorePolicy {
	case "optimistic", "expiry":
	default:
		return fmt.Errorf("unknown restore policy %q", c.RestorePolicy)
	}
	if c.Countdown < 0 {
		return fmt.Errorf("countdown must not be negative, got %d", c.Countdown)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".govdash-token"
	}
	return dir + string(os.PathSeparator) + "govdash" + string(os.PathSeparator) + "token"
}
