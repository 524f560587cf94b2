package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/govdash/core"
	"github.com/layer-3/govdash/ports"
)

const (
	PathChallenge = "/auth/challenge"
	PathVerify    = "/auth/verify"
	PathUserDaos  = "/user/daos"
	PathWatchlist = "/user/watchlist"
)

const defaultTimeout = 30 * time.Second

// Client talks to the governance API: challenge/verify and identity scoped DAO data
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     ports.TokenStore
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTokenStore attaches the bearer token to identity scoped requests
func WithTokenStore(tokens ports.TokenStore) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// NewClient validates baseURL and returns a ready client
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:    normalized,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var (
	_ ports.AuthAPI = (*Client)(nil)
	_ ports.DaoAPI  = (*Client)(nil)
)

// Challenge requests a single-use challenge for address
func (c *Client) Challenge(ctx context.Context, address string) (string, error) {
	var raw json.RawMessage
	body := map[string]string{"walletAddress": address}
	if err := c.do(ctx, http.MethodPost, PathChallenge, body, false, &raw); err != nil {
		return "", err
	}
	return decodeChallenge(raw)
}

// Verify submits the signed challenge and returns the bearer token
func (c *Client) Verify(ctx context.Context, req ports.VerifyRequest) (string, error) {
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.do(ctx, http.MethodPost, PathVerify, req, false, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errors.New("verify response missing access token")
	}
	return resp.AccessToken, nil
}

// AssociatedDaos lists the DAOs the authenticated wallet is a member of
func (c *Client) AssociatedDaos(ctx context.Context) (*core.AssociatedDaos, error) {
	var resp core.AssociatedDaos
	if err := c.do(ctx, http.MethodGet, PathUserDaos, nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Watchlist lists the DAOs the user tracks
func (c *Client) Watchlist(ctx context.Context) ([]core.WatchlistEntry, error) {
	var resp struct {
		Result []core.WatchlistEntry `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, PathWatchlist, nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// AddToWatchlist starts tracking a realm
func (c *Client) AddToWatchlist(ctx context.Context, realm string) error {
	return c.do(ctx, http.MethodPost, PathWatchlist, map[string]string{"realm": realm}, true, nil)
}

// RemoveFromWatchlist stops tracking a realm
func (c *Client) RemoveFromWatchlist(ctx context.Context, realm string) error {
	return c.do(ctx, http.MethodDelete, PathWatchlist+"/"+url.PathEscape(realm), nil, true, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload any, authenticated bool, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	if authenticated {
		if c.tokens == nil {
			return core.ErrUnauthorized
		}
		token, err := c.tokens.Get(ctx)
		if err != nil {
			if errors.Is(err, core.ErrTokenNotFound) {
				return core.ErrUnauthorized
			}
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return core.ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// decodeChallenge accepts either a bare JSON string or {"challenge": "..."}
func decodeChallenge(raw json.RawMessage) (string, error) {
	var challenge string
	if err := json.Unmarshal(raw, &challenge); err != nil {
		var wrapped struct {
			Challenge string `json:"challenge"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return "", fmt.Errorf("failed to decode challenge: %w", err)
		}
		challenge = wrapped.Challenge
	}
	if challenge == "" {
		return "", errors.New("empty challenge")
	}
	return challenge, nil
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("authapi: base URL required")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("authapi: invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("authapi: base URL must be absolute")
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}
