package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Status is the connection state of the multiplexed subscription.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// ClientOptions tune the stream client.
type ClientOptions struct {
	BaseURL     string
	UserAgent   string
	ReadTimeout time.Duration
	BufferSize  int
}

// Client owns one multiplexed websocket subscription covering the kline_1m and
// miniTicker sub-streams of every subscribed instrument. Connection loss is
// terminal for the client; re-establishing is a full re-initialisation owned by
// the caller, not an internal retry loop.
type Client struct {
	opts    ClientOptions
	url     string
	symbols map[string]string
	logger  zerolog.Logger
	events  chan Event

	mu     sync.RWMutex
	conn   *websocket.Conn
	status Status
}

// NewClient prepares a subscription for the given instrument keys.
func NewClient(opts ClientOptions, symbols []string, logger zerolog.Logger) *Client {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 3 * time.Minute
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}

	bykey := make(map[string]string, len(symbols))
	for _, s := range symbols {
		bykey[strings.ToLower(s)] = s
	}

	return &Client{
		opts:    opts,
		url:     StreamURL(opts.BaseURL, symbols),
		symbols: bykey,
		logger:  logger.With().Str("component", "stream").Logger(),
		events:  make(chan Event, opts.BufferSize),
		status:  StatusDisconnected,
	}
}

// StreamURL builds the combined-stream endpoint for the given symbols.
func StreamURL(baseURL string, symbols []string) string {
	parts := make([]string, 0, len(symbols)*2)
	for _, s := range symbols {
		key := strings.ToLower(s)
		parts = append(parts, key+"@kline_1m", key+"@miniTicker")
	}
	return strings.TrimRight(baseURL, "/") + "?streams=" + strings.Join(parts, "/")
}

// Connect dials the combined stream and starts the reader. The events channel
// is closed when the connection ends for any reason.
func (c *Client) Connect(ctx context.Context) error {
	if len(c.symbols) == 0 {
		return errors.New("stream: no symbols to subscribe")
	}

	c.setStatus(StatusConnecting)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	if c.opts.UserAgent != "" {
		header.Set("User-Agent", c.opts.UserAgent)
	}

	conn, _, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		c.setStatus(StatusError)
		close(c.events)
		return fmt.Errorf("dial stream: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setStatus(StatusConnected)
	c.logger.Info().Int("symbols", len(c.symbols)).Msg("stream connected")

	go c.readLoop(ctx)
	return nil
}

// Events returns the decoded event channel. Closed once the connection ends.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Status reports the current connection state.
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) readLoop(ctx context.Context) {
	defer close(c.events)

	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			c.setStatus(StatusDisconnected)
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info().Msg("stream closed by remote")
				c.setStatus(StatusDisconnected)
			} else if ctx.Err() != nil || errors.Is(err, websocket.ErrCloseSent) {
				c.setStatus(StatusDisconnected)
			} else {
				c.logger.Warn().Err(err).Msg("stream read error")
				c.setStatus(StatusError)
			}
			_ = c.Close()
			return
		}

		key, ev, err := decodeFrame(raw)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping undecodable frame")
			continue
		}

		symbol, ok := c.symbols[key]
		if !ok {
			// Message for an unsubscribed instrument; drop silently.
			continue
		}
		ev.Symbol = symbol

		select {
		case c.events <- ev:
		case <-ctx.Done():
			c.setStatus(StatusDisconnected)
			_ = c.Close()
			return
		}
	}
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}
