package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/OCAP2/luxreplay/pkg/streaming"

	ws "github.com/gorilla/websocket"
)

const (
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// socket is one dialed connection and the signals of its loops.
type socket struct {
	conn *ws.Conn
	wake chan struct{}
	stop chan struct{}
}

// connection streams one replay at a time to the viewer. Every message of
// the current replay stays in the outbox until the replay ends, so after a
// reconnect the viewer receives start_replay and all frames again, in
// turn order, before anything new.
type connection struct {
	mu     sync.Mutex
	sock   *socket
	outbox [][]byte
	// sent counts outbox messages written to sock.
	sent int
	// round changes whenever the outbox is replaced.
	round  int
	closed bool

	acks chan streaming.AckMessage
	done chan struct{}

	url        string
	retryDelay time.Duration
	logger     *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		acks:       make(chan streaming.AckMessage, ackChSize),
		done:       make(chan struct{}),
		retryDelay: time.Second,
		logger:     logger,
	}
}

// dial connects to the viewer with the secret as query parameter.
func (c *connection) dial(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	c.url = u.String()

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}
	c.attach(conn)
	return nil
}

func (c *connection) dialOnce() (*ws.Conn, error) {
	dialer := ws.Dialer{HandshakeTimeout: writeWait, EnableCompression: true}
	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// attach makes conn the live socket and rewinds the outbox. It returns the
// number of messages that will be resent, or -1 if the connection was
// closed meanwhile.
func (c *connection) attach(conn *ws.Conn) int {
	s := &socket{conn: conn, wake: make(chan struct{}, 1), stop: make(chan struct{})}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return -1
	}
	c.sock = s
	c.sent = 0
	pending := len(c.outbox)
	c.mu.Unlock()

	go c.writeLoop(s)
	go c.readLoop(s)
	c.signal()
	return pending
}

func (c *connection) signal() {
	c.mu.Lock()
	s := c.sock
	c.mu.Unlock()
	if s == nil {
		return
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// next returns the next unsent message for s, or nil when s is caught up.
// ok is false once s is no longer the live socket.
func (c *connection) next(s *socket) (data []byte, round int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.sock != s {
		return nil, 0, false
	}
	if c.sent < len(c.outbox) {
		return c.outbox[c.sent], c.round, true
	}
	return nil, c.round, true
}

func (c *connection) markSent(s *socket, round int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sock == s && c.round == round && c.sent < len(c.outbox) {
		c.sent++
	}
}

// writeLoop is the only writer of s apart from control frames.
func (c *connection) writeLoop(s *socket) {
	for {
		data, round, ok := c.next(s)
		if !ok {
			return
		}
		if data == nil {
			select {
			case <-c.done:
				return
			case <-s.stop:
				return
			case <-s.wake:
			}
			continue
		}

		if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			c.lost(s, err)
			return
		}
		if err := s.conn.WriteMessage(ws.TextMessage, data); err != nil {
			c.lost(s, err)
			return
		}
		c.markSent(s, round)
	}
}

// readLoop routes acks to waiters until s fails.
func (c *connection) readLoop(s *socket) {
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.lost(s, err)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Ignoring viewer message", "raw", string(message))
			continue
		}
		select {
		case c.acks <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

// lost retires s after a read or write failure and starts reconnecting.
// Only the first failure of the live socket counts.
func (c *connection) lost(s *socket, err error) {
	c.mu.Lock()
	if c.closed || c.sock != s {
		c.mu.Unlock()
		return
	}
	c.sock = nil
	close(s.stop)
	unsent := len(c.outbox) - c.sent
	c.mu.Unlock()

	_ = s.conn.Close()
	c.logger.Warn("Viewer connection lost", "error", err, "unsent", unsent)
	go c.reconnect()
}

// reconnect dials with exponential backoff and resends the current replay.
func (c *connection) reconnect() {
	backoff := c.retryDelay
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("Reconnecting to viewer", "attempt", attempt, "backoff", backoff)
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		if resend := c.attach(conn); resend >= 0 {
			c.logger.Info("Viewer reconnected", "attempt", attempt, "resending", resend)
		}
		return
	}
	c.logger.Error("Viewer reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// begin replaces the outbox with a new replay opened by start.
func (c *connection) begin(start []byte) {
	c.mu.Lock()
	c.outbox = [][]byte{start}
	c.sent = 0
	c.round++
	c.mu.Unlock()

	// Acks of a previous replay must not satisfy the new one.
drain:
	for {
		select {
		case <-c.acks:
		default:
			break drain
		}
	}
	c.signal()
}

// push queues data after everything already in the outbox.
func (c *connection) push(data []byte) {
	c.mu.Lock()
	c.outbox = append(c.outbox, data)
	c.mu.Unlock()
	c.signal()
}

// reset drops the outbox once the viewer has the whole replay.
func (c *connection) reset() {
	c.mu.Lock()
	c.outbox = nil
	c.sent = 0
	c.round++
	c.mu.Unlock()
}

// unsent reports outbox messages not yet written to the live socket.
func (c *connection) unsent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outbox) - c.sent
}

// awaitAck blocks until the viewer acknowledges ackFor. It gives up after
// timeout or when ctx is done.
func (c *connection) awaitAck(ctx context.Context, ackFor string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a close frame and stops every loop.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	s := c.sock
	c.sock = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	_ = s.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return s.conn.Close()
}
