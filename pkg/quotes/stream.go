package quotes

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"swing-screenerv1/internal/model"
)

const (
	defaultStreamURL  = "wss://stream.equityfeed.example.com/ticks"
	heartBeatMessage  = "ping"
	heartBeatInterval = 10 * time.Second
)

// StreamConfig configures the live tick stream.
type StreamConfig struct {
	URL       string // default: vendor production stream
	APIKey    string
	ClientID  string
	FeedToken string

	MaxRetryAttempts int           // reconnects before giving up (default 5)
	RetryDelay       time.Duration // base delay, doubled per attempt (default 5s)
}

// Stream maintains a WebSocket subscription to live last-traded-price
// updates and delivers them through the OnTick callback. Reconnects with
// exponential backoff and resubscribes automatically.
type Stream struct {
	cfg    StreamConfig
	dialer *websocket.Dialer

	mu         sync.Mutex
	conn       *websocket.Conn
	subscribed []string
	closed     bool

	lastPong time.Time

	// Callbacks. Set before Connect.
	OnTick  func(model.Tick)
	OnOpen  func()
	OnClose func()
	OnError func(err error)

	done chan struct{}
}

// NewStream builds a Stream. FeedToken comes from Client.FeedToken after login.
func NewStream(cfg StreamConfig) (*Stream, error) {
	if cfg.APIKey == "" || cfg.ClientID == "" || cfg.FeedToken == "" {
		return nil, ErrNotLoggedIn
	}
	if cfg.URL == "" {
		cfg.URL = defaultStreamURL
	}
	if cfg.MaxRetryAttempts <= 0 {
		cfg.MaxRetryAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &Stream{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		done:   make(chan struct{}),
	}, nil
}

// Connect dials the stream and starts the read and heartbeat loops.
func (s *Stream) Connect() error {
	header := http.Header{}
	header.Set("x-api-key", s.cfg.APIKey)
	header.Set("x-client-code", s.cfg.ClientID)
	header.Set("x-feed-token", s.cfg.FeedToken)

	conn, resp, err := s.dialer.Dial(s.cfg.URL, header)
	if err != nil {
		if resp != nil {
			log.Printf("[stream] dial failed, status: %s", resp.Status)
		}
		return fmt.Errorf("stream dial: %w", err)
	}

	conn.SetPongHandler(func(appData string) error {
		s.mu.Lock()
		s.lastPong = time.Now()
		s.mu.Unlock()
		return nil
	})

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	go s.readLoop(conn)
	go s.heartbeatLoop(conn)

	if s.OnOpen != nil {
		s.OnOpen()
	}
	return nil
}

// Subscribe requests tick updates for symbols and remembers them for
// resubscription after a reconnect.
func (s *Stream) Subscribe(symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return errors.New("stream: no connection")
	}

	req := map[string]any{
		"action":  "subscribe",
		"symbols": symbols,
	}
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("stream subscribe: %w", err)
	}

	seen := make(map[string]bool, len(s.subscribed))
	for _, sym := range s.subscribed {
		seen[sym] = true
	}
	for _, sym := range symbols {
		if !seen[sym] {
			s.subscribed = append(s.subscribed, sym)
		}
	}
	return nil
}

// Close shuts the stream down. Safe to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	close(s.done)
	if conn != nil {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
}

type tickFrame struct {
	Type   string  `json:"type"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
	TS     int64   `json:"ts"` // epoch millis
}

func (s *Stream) readLoop(conn *websocket.Conn) {
	defer func() {
		if s.OnClose != nil {
			s.OnClose()
		}
	}()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		mt, message, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			log.Printf("[stream] read error: %v", err)
			s.reconnect()
			return
		}

		if mt != websocket.TextMessage {
			continue
		}
		if string(message) == "pong" {
			s.mu.Lock()
			s.lastPong = time.Now()
			s.mu.Unlock()
			continue
		}

		var frame tickFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			log.Printf("[stream] parse error: %v", err)
			continue
		}
		if frame.Type != "tick" || frame.Symbol == "" {
			continue
		}

		ts := time.Now().UTC()
		if frame.TS > 0 {
			ts = time.Unix(0, frame.TS*int64(time.Millisecond)).UTC()
		}
		if s.OnTick != nil {
			s.OnTick(model.Tick{Symbol: frame.Symbol, Price: frame.Price, Volume: frame.Volume, TS: ts})
		}
	}
}

func (s *Stream) heartbeatLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(heartBeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte(heartBeatMessage)); err != nil {
				return
			}
		}
	}
}

// reconnect redials with exponential backoff and replays subscriptions.
func (s *Stream) reconnect() {
	delay := s.cfg.RetryDelay

	for attempt := 1; attempt <= s.cfg.MaxRetryAttempts; attempt++ {
		select {
		case <-s.done:
			return
		case <-time.After(delay):
		}
		delay *= 2

		if err := s.Connect(); err != nil {
			log.Printf("[stream] reconnect attempt %d/%d: %v", attempt, s.cfg.MaxRetryAttempts, err)
			continue
		}

		s.mu.Lock()
		symbols := append([]string(nil), s.subscribed...)
		s.subscribed = s.subscribed[:0]
		s.mu.Unlock()
		if len(symbols) > 0 {
			if err := s.Subscribe(symbols); err != nil {
				log.Printf("[stream] resubscribe: %v", err)
			}
		}
		log.Printf("[stream] reconnected after %d attempt(s)", attempt)
		return
	}

	if s.OnError != nil {
		s.OnError(errors.New("stream: max reconnect attempts reached"))
	}
}
