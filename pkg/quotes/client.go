// Package quotes is a REST + WebSocket client for the equity data vendor.
// It handles TOTP session login, token refresh, daily-bar history and
// point-in-time quotes.
//
// Usage example:
//
//	c := quotes.NewClient(quotes.Config{APIKey: "key", ClientID: "id", TOTPSecret: "base32secret"})
//	if err := c.Login(ctx, "password"); err != nil { log.Fatal(err) }
//	hist, err := c.History(ctx, "NVDA", 90)
package quotes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"swing-screenerv1/internal/model"
)

const (
	defaultRoot    = "https://api.equityfeed.example.com"
	defaultTimeout = 7 * time.Second
)

var routes = map[string]string{
	"api.login":   "/rest/auth/v1/loginByPassword",
	"api.logout":  "/rest/secure/v1/logout",
	"api.refresh": "/rest/auth/v1/generateTokens",
	"api.history": "/rest/secure/v1/history",
	"api.quote":   "/rest/secure/v1/quote",
}

// Config configures the vendor client.
type Config struct {
	APIKey     string
	ClientID   string
	TOTPSecret string // base32 seed for session login

	RootURL string        // default: vendor production API
	Timeout time.Duration // default: 7s
	Debug   bool
}

// Client is the vendor REST client. Safe for concurrent use after Login.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	feedToken    string

	// SessionExpiryHook fires when the vendor rejects the session token.
	SessionExpiryHook func()
}

// NewClient initializes the client. Call Login before data methods.
func NewClient(cfg Config) *Client {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.RootURL = strings.TrimRight(cfg.RootURL, "/")

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// FeedToken returns the streaming token issued at login.
func (c *Client) FeedToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feedToken
}

// AccessToken returns the current session token.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

type envelope struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	Data      json.RawMessage `json:"data"`
}

func (c *Client) requestHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-PrivateKey", c.cfg.APIKey)
	h.Set("X-SourceID", "API")
	c.mu.RLock()
	if c.accessToken != "" {
		h.Set("Authorization", "Bearer "+c.accessToken)
	}
	c.mu.RUnlock()
	return h
}

func (c *Client) doRequest(ctx context.Context, route string, params any) (*envelope, error) {
	uri, ok := routes[route]
	if !ok {
		return nil, fmt.Errorf("unknown route: %s", route)
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RootURL+uri, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header = c.requestHeaders()

	if c.cfg.Debug {
		log.Printf("[quotes] request %s params=%s", uri, string(body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if c.cfg.Debug {
		log.Printf("[quotes] response code=%d body=%s", resp.StatusCode, string(raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("couldn't parse JSON response: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden && env.ErrorCode == "TokenException" {
		if c.SessionExpiryHook != nil {
			c.SessionExpiryHook()
		}
		return &env, fmt.Errorf("session expired: %s", env.Message)
	}
	return &env, nil
}

// Login authenticates with password plus a fresh TOTP code and stores the
// session tokens on the client.
func (c *Client) Login(ctx context.Context, password string) error {
	code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("generate totp: %w", err)
	}

	env, err := c.doRequest(ctx, "api.login", map[string]string{
		"clientcode": c.cfg.ClientID,
		"password":   password,
		"totp":       code,
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !env.Status {
		return fmt.Errorf("login failed: %s", env.Message)
	}

	var tokens struct {
		JWTToken     string `json:"jwtToken"`
		RefreshToken string `json:"refreshToken"`
		FeedToken    string `json:"feedToken"`
	}
	if err := json.Unmarshal(env.Data, &tokens); err != nil {
		return fmt.Errorf("unexpected login response format: %w", err)
	}

	c.mu.Lock()
	c.accessToken = tokens.JWTToken
	c.refreshToken = tokens.RefreshToken
	c.feedToken = tokens.FeedToken
	c.mu.Unlock()

	log.Printf("[quotes] session established for %s", c.cfg.ClientID)
	return nil
}

// RenewSession exchanges the refresh token for new session tokens.
func (c *Client) RenewSession(ctx context.Context) error {
	c.mu.RLock()
	refresh := c.refreshToken
	c.mu.RUnlock()

	env, err := c.doRequest(ctx, "api.refresh", map[string]string{"refreshToken": refresh})
	if err != nil {
		return fmt.Errorf("renew session: %w", err)
	}
	if !env.Status {
		return fmt.Errorf("renew session failed: %s", env.Message)
	}

	var tokens struct {
		JWTToken  string `json:"jwtToken"`
		FeedToken string `json:"feedToken"`
	}
	if err := json.Unmarshal(env.Data, &tokens); err != nil {
		return err
	}

	c.mu.Lock()
	if tokens.JWTToken != "" {
		c.accessToken = tokens.JWTToken
	}
	if tokens.FeedToken != "" {
		c.feedToken = tokens.FeedToken
	}
	c.mu.Unlock()
	return nil
}

// Logout terminates the vendor session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.doRequest(ctx, "api.logout", map[string]string{"clientcode": c.cfg.ClientID})
	return err
}

// symbolErrorCodes are vendor errors that mean the symbol itself is bad,
// not the connection.
var symbolErrorCodes = map[string]bool{
	"AB1018": true, // invalid symbol
	"AB2001": true, // no data for instrument
}

// History returns up to bars daily bars for symbol, oldest first.
// Implements model.MarketDataProvider.
func (c *Client) History(ctx context.Context, symbol string, bars int) (*model.History, error) {
	env, err := c.doRequest(ctx, "api.history", map[string]any{
		"symbol":   symbol,
		"interval": "ONE_DAY",
		"count":    bars,
	})
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}
	if !env.Status {
		if symbolErrorCodes[env.ErrorCode] {
			return nil, fmt.Errorf("history %s: %s: %w", symbol, env.Message, model.ErrDataUnavailable)
		}
		return nil, fmt.Errorf("history %s: %s", symbol, env.Message)
	}

	// Vendor sends rows as [epochSec, open, high, low, close, volume].
	var rows [][6]json.Number
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, fmt.Errorf("history %s: parse rows: %w", symbol, err)
	}

	h := &model.History{Symbol: symbol, Bars: make([]model.PriceBar, 0, len(rows))}
	for _, row := range rows {
		epoch, err := row[0].Int64()
		if err != nil {
			return nil, fmt.Errorf("history %s: bad date %q: %w", symbol, row[0], err)
		}
		open, _ := row[1].Float64()
		high, _ := row[2].Float64()
		low, _ := row[3].Float64()
		cls, _ := row[4].Float64()
		vol, _ := row[5].Int64()
		h.Bars = append(h.Bars, model.PriceBar{
			Date: time.Unix(epoch, 0).UTC(), Open: open, High: high, Low: low, Close: cls, Volume: vol,
		})
	}
	return h, nil
}

// Quote returns the latest quote for symbol.
// Implements model.MarketDataProvider.
func (c *Client) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	env, err := c.doRequest(ctx, "api.quote", map[string]string{"symbol": symbol})
	if err != nil {
		return model.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if !env.Status {
		if symbolErrorCodes[env.ErrorCode] {
			return model.Quote{}, fmt.Errorf("quote %s: %s: %w", symbol, env.Message, model.ErrDataUnavailable)
		}
		return model.Quote{}, fmt.Errorf("quote %s: %s", symbol, env.Message)
	}

	var q model.Quote
	if err := json.Unmarshal(env.Data, &q); err != nil {
		return model.Quote{}, fmt.Errorf("quote %s: parse: %w", symbol, err)
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	return q, nil
}

var _ model.MarketDataProvider = (*Client)(nil)

// ErrNotLoggedIn is returned by stream setup when no session exists.
var ErrNotLoggedIn = errors.New("quotes: not logged in")
