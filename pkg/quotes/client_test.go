package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"swing-screenerv1/internal/model"
)

const testTOTPSecret = "JBSWY3DPEHPK3PXP"

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		APIKey:     "test-key",
		ClientID:   "TESTID",
		TOTPSecret: testTOTPSecret,
		RootURL:    srv.URL,
	})
	return srv, c
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestLogin_SetsTokens(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != routes["api.login"] {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["clientcode"] != "TESTID" {
			t.Errorf("clientcode = %q", req["clientcode"])
		}
		if !totp.Validate(req["totp"], testTOTPSecret) {
			t.Errorf("totp %q did not validate", req["totp"])
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": true,
			"data": map[string]string{
				"jwtToken":     "jwt-1",
				"refreshToken": "refresh-1",
				"feedToken":    "feed-1",
			},
		})
	})

	if err := c.Login(context.Background(), "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if c.AccessToken() != "jwt-1" || c.FeedToken() != "feed-1" {
		t.Errorf("tokens not stored: access=%q feed=%q", c.AccessToken(), c.FeedToken())
	}
}

func TestLogin_RejectedCredentials(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": false, "message": "invalid totp"})
	})

	if err := c.Login(context.Background(), "wrong"); err == nil {
		t.Error("rejected login returned nil error")
	}
}

func TestHistory_ParsesBars(t *testing.T) {
	day1 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != routes["api.history"] {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": true,
			"data": [][]any{
				{day1.Unix(), 100.0, 103.5, 99.0, 102.0, 1_200_000},
				{day2.Unix(), 102.0, 105.0, 101.5, 104.5, 1_500_000},
			},
		})
	})

	h, err := c.History(context.Background(), "NVDA", 90)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if h.Len() != 2 {
		t.Fatalf("bars = %d, want 2", h.Len())
	}
	if !h.Bars[0].Date.Equal(day1) {
		t.Errorf("bar 0 date = %v", h.Bars[0].Date)
	}
	last := h.Last()
	if last.Close != 104.5 || last.Volume != 1_500_000 {
		t.Errorf("last bar = %+v", last)
	}
}

func TestHistory_UnknownSymbol(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": false, "message": "invalid symbol", "errorcode": "AB1018",
		})
	})

	_, err := c.History(context.Background(), "NOPE", 90)
	if !errors.Is(err, model.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestHistory_TransientVendorError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": false, "message": "internal error", "errorcode": "AB5000",
		})
	})

	_, err := c.History(context.Background(), "NVDA", 90)
	if err == nil {
		t.Fatal("vendor error returned nil")
	}
	if errors.Is(err, model.ErrDataUnavailable) {
		t.Error("transient vendor error flagged as unavailable symbol")
	}
}

func TestQuote_ParsesAndDefaultsSymbol(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": true,
			"data": map[string]any{
				"name": "NVIDIA Corp", "price": 487.23, "volume": 41_000_000, "market_cap": 1.2e12,
			},
		})
	})

	q, err := c.Quote(context.Background(), "NVDA")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Symbol != "NVDA" {
		t.Errorf("symbol defaulted to %q", q.Symbol)
	}
	if q.Price != 487.23 || q.MarketCap != 1.2e12 {
		t.Errorf("quote = %+v", q)
	}
}

func TestSessionExpiryHookFires(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"status": false, "message": "token expired", "errorcode": "TokenException",
		})
	})

	var fired bool
	c.SessionExpiryHook = func() { fired = true }

	if _, err := c.Quote(context.Background(), "NVDA"); err == nil {
		t.Fatal("expired session returned nil error")
	}
	if !fired {
		t.Error("session expiry hook did not fire")
	}
}
