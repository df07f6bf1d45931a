package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/railtycoon/server/pkg/streaming"
)

const (
	sendChSize = 10_000
	maxBackoff = 30 * time.Second
	writeWait  = 10 * time.Second
)

// replaced in tests
var initialBackoff = time.Second

// connection manages a WebSocket connection with a single write goroutine.
type connection struct {
	mu           sync.Mutex
	conn         *ws.Conn
	sendCh       chan []byte
	done         chan struct{} // closed on shutdown
	closed       bool
	reconnecting bool

	wsURL  string
	secret string

	// Sent first on every (re)connect.
	hello []byte

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// dial connects to the relay, sends the hello and starts read/write loops.
func (c *connection) dial(rawURL, secret string, hello []byte) error {
	c.wsURL = rawURL
	c.secret = secret
	c.hello = hello

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}
	if err := c.greet(conn); err != nil {
		_ = conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop(conn)
	go c.readLoop(conn)

	return nil
}

// dialOnce performs a single WebSocket dial with the secret query param.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", c.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) greet(conn *ws.Conn) error {
	if c.hello == nil {
		return nil
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("hello deadline: %w", err)
	}
	if err := conn.WriteMessage(ws.TextMessage, c.hello); err != nil {
		return fmt.Errorf("sending hello: %w", err)
	}
	return nil
}

// writeLoop drains sendCh and writes messages to conn. It returns on error
// or shutdown; at most one writeLoop runs per connection.
func (c *connection) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				go c.reconnect(conn)
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				go c.reconnect(conn)
				return
			}
		}
	}
}

// readLoop consumes relay messages. The relay only acks; reading is what
// notices a dropped connection while nothing is being written.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("WebSocket read error", "error", err)
			go c.reconnect(conn)
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != "ack" {
			c.logger.Debug("Unexpected relay message", "raw", string(message))
			continue
		}
		c.logger.Debug("Relay ack", "for", ack.For)
	}
}

// reconnect replaces the failed connection, retrying with exponential
// backoff until it succeeds or the connection is closed.
func (c *connection) reconnect(failed *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.reconnecting || c.conn != failed {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	_ = c.conn.Close()
	c.conn = nil
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		c.logger.Info("Reconnecting to relay", "attempt", attempt, "backoff", backoff)
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err == nil {
			err = c.greet(conn)
			if err != nil {
				_ = conn.Close()
			}
		}
		if err != nil {
			c.logger.Warn("Reconnect failed", "attempt", attempt, "error", err)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.logger.Info("Relay reconnected", "attempt", attempt)
		go c.writeLoop(conn)
		go c.readLoop(conn)
		return
	}
}

// send pushes data to the write loop. Non-blocking; reports false when the
// channel is full and the message was dropped.
func (c *connection) send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		return false
	}
}

// close sends a WebSocket close frame and shuts down all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		return conn.Close()
	}
	return nil
}
