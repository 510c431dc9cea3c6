package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"MarketFeeds/internal/domain/models"
	drepo "MarketFeeds/internal/domain/repository"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Client implements a BarStream over a provider WebSocket. The provider
// pushes JSON bar frames for subscribed symbols.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	timeframe      int
	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// New creates a provider stream.
func New(apiKey, websocketURL string, symbols []string, timeframe int, reconnectDelay, pingInterval time.Duration) drepo.BarStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		timeframe:      timeframe,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	log.Printf("stream: connected")
	return nil
}

// current snapshots the connection so goroutines never read c.conn while
// Reconnect swaps it.
func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Subscribe subscribes to configured symbols on the configured timeframe.
func (c *Client) Subscribe(ctx context.Context) error {
	conn := c.current()
	if conn == nil {
		return fmt.Errorf("stream not connected")
	}
	for _, s := range c.symbols {
		msg := map[string]interface{}{"type": "subscribe", "symbol": s, "timeframe": c.timeframe}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		log.Printf("stream: subscribed %s tf=%d", s, c.timeframe)
	}
	return nil
}

type wsBar struct {
	S  string  `json:"s"`
	TF int     `json:"tf"`
	O  float64 `json:"o"`
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	C  float64 `json:"c"`
	V  float64 `json:"v"`
	T  int64   `json:"t"` // ms
}

type wsMessage struct {
	Type string  `json:"type"`
	Data []wsBar `json:"data"`
}

// Read streams bar events and errors until the connection drops or the
// context ends.
func (c *Client) Read(ctx context.Context) (<-chan *models.BarEvent, <-chan error) {
	events := make(chan *models.BarEvent, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if conn := c.current(); conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(events)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				conn := c.current()
				if conn == nil {
					errs <- fmt.Errorf("stream conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("stream read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-bar frames
					continue
				}
				if m.Type != "bar" {
					continue
				}
				for _, d := range m.Data {
					tf := d.TF
					if tf == 0 {
						tf = c.timeframe
					}
					ev := barEvent(d, tf)
					select {
					case events <- ev:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return events, errs
}

// Provider frames are float-encoded; exact fixed-point handling starts at
// the feed boundary.
func barEvent(d wsBar, timeframe int) *models.BarEvent {
	return &models.BarEvent{
		Symbol:    d.S,
		Timeframe: timeframe,
		Open:      decimal.NewFromFloat(d.O),
		High:      decimal.NewFromFloat(d.H),
		Low:       decimal.NewFromFloat(d.L),
		Close:     decimal.NewFromFloat(d.C),
		Volume:    decimal.NewFromFloat(d.V),
		Timestamp: d.T / 1000,
	}
}

// Reconnect closes and reconnects after the configured delay.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
