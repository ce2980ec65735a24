package feed

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client reads the cabinet stream from an established websocket connection
// and publishes decoded events on a Bus.
type Client struct {
	conn        *websocket.Conn
	bus         *Bus
	logger      *zap.Logger
	readTimeout time.Duration
	writeMu     sync.Mutex
}

// Dial connects to the cabinet stream at address (ws://host:port).
// Reconnection is left to the caller.
func Dial(ctx context.Context, address string, bus *Bus, readTimeout time.Duration, logger *zap.Logger) (*Client, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, address, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dial feed %s: %w", address, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return NewClient(conn, bus, readTimeout, logger), nil
}

// NewClient wraps an open connection. A zero readTimeout disables read deadlines.
func NewClient(conn *websocket.Conn, bus *Bus, readTimeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		conn:        conn,
		bus:         bus,
		logger:      logger,
		readTimeout: readTimeout,
	}
}

// Run reads frames until ctx is cancelled or the connection fails.
// Cancellation closes the connection and returns nil.
func (c *Client) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.Close()
		case <-done:
		}
	}()

	for {
		if c.readTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("feed closed by cabinet")
				return nil
			}
			return fmt.Errorf("read feed: %w", err)
		}
		c.handleFrame(string(data))
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) handleFrame(raw string) {
	msg, err := ParseMessage(raw)
	if err != nil {
		c.logger.Warn("ignoring feed frame", zap.String("raw", raw), zap.Error(err))
		return
	}

	if msg.Key == KeyAlive {
		if err := c.send(Message{Key: KeyImAlive, Value: "null"}); err != nil {
			c.logger.Warn("failed to answer keepalive", zap.Error(err))
		}
		return
	}

	if err := dispatchMessage(c.bus, msg); err != nil {
		c.logger.Warn("dropping feed event", zap.String("raw", raw), zap.Error(err))
	}
}

func (c *Client) send(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg.Encode()))
}

// dispatchMessage decodes msg and publishes it. Unknown keys are ignored.
func dispatchMessage(bus *Bus, msg Message) error {
	event, ok, err := Decode(msg)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := bus.Publish(event); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
