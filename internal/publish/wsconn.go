package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/ayusman/handsignal/internal/logging"
)

// ErrNotConnected is returned by SendText while no socket is open.
var ErrNotConnected = errors.New("websocket not connected")

// ErrSendQueueFull is returned by SendText when the write pump has fallen
// behind by SendBuffer frames.
var ErrSendQueueFull = errors.New("websocket send queue full")

const (
	writeWait = 5 * time.Second

	defaultSendBuffer = 64
)

// connectLine identifies the client to the NATS server on every (re)connect.
const connectLine = `CONNECT {"verbose":false,"pedantic":false,"name":"handsignal","lang":"go","protocol":1}` + crlf

// WSConfig configures a WSConn.
type WSConfig struct {
	URL         string
	DialTimeout time.Duration
	MaxRetries  uint64
	// RetryBase is the first backoff step; it doubles on each attempt.
	RetryBase time.Duration
	// SendBuffer is the number of frames queued ahead of the write pump.
	SendBuffer int
}

// WSConn is a Connection to a NATS websocket endpoint. Sends are queued and
// written by a pump goroutine, so a stalled server never blocks the caller.
type WSConn struct {
	cfg    WSConfig
	log    logging.Logger
	dialer *websocket.Dialer

	mu   sync.Mutex
	sess *session
}

// session is one open socket with its outbound queue.
type session struct {
	conn *websocket.Conn
	send chan []byte
	// done is closed when the read pump exits.
	done chan struct{}
}

// NewWSConn creates an unconnected WSConn.
func NewWSConn(cfg WSConfig, log logging.Logger) *WSConn {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	return &WSConn{
		cfg: cfg,
		log: logging.Component(log, "nats-ws"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.DialTimeout,
		},
	}
}

// Connect dials the endpoint, retrying with exponential backoff.
func (c *WSConn) Connect(ctx context.Context) error {
	b := retry.WithMaxRetries(c.cfg.MaxRetries, retry.NewExponential(c.cfg.RetryBase))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			if resp != nil {
				err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
			}
			c.log.WithError(err).WithField("url", c.cfg.URL).Warn("Dial failed")
			return retry.RetryableError(err)
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(connectLine)); err != nil {
			conn.Close()
			return retry.RetryableError(fmt.Errorf("send CONNECT: %w", err))
		}

		s := &session{
			conn: conn,
			send: make(chan []byte, c.cfg.SendBuffer),
			done: make(chan struct{}),
		}
		c.mu.Lock()
		c.sess = s
		c.mu.Unlock()

		go c.readPump(s)
		go c.writePump(s)
		c.log.WithField("url", c.cfg.URL).Info("Connection open")
		return nil
	})
}

// Run keeps the connection open until ctx is cancelled, reconnecting after
// the server drops it.
func (c *WSConn) Run(ctx context.Context) error {
	for {
		if err := c.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("connect %s: %w", c.cfg.URL, err)
		}

		c.mu.Lock()
		s := c.sess
		c.mu.Unlock()
		if s == nil {
			continue
		}

		select {
		case <-ctx.Done():
			return c.Close()
		case <-s.done:
			c.log.Warn("Connection closed, reconnecting")
		}
	}
}

// IsOpen reports whether a socket is currently connected.
func (c *WSConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil
}

// SendText queues payload as one text message and returns without waiting
// for the write. payload must not be modified after the call.
func (c *WSConn) SendText(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ErrNotConnected
	}
	return c.sess.enqueue(payload)
}

func (s *session) enqueue(payload []byte) error {
	select {
	case s.send <- payload:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close sends a close frame and releases the socket. Frames still queued are
// dropped.
func (c *WSConn) Close() error {
	c.mu.Lock()
	s := c.sess
	c.sess = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.conn.Close()
}

// writePump is the only writer of data frames on the socket once the
// session is open.
func (c *WSConn) writePump(s *session) {
	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.WithError(err).Warn("Write failed")
				// Unblocks the read pump, which tears the session down.
				s.conn.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// readPump consumes server traffic: it answers PING and logs -ERR.
func (c *WSConn) readPump(s *session) {
	defer func() {
		c.mu.Lock()
		if c.sess == s {
			c.sess = nil
		}
		c.mu.Unlock()
		s.conn.Close()
		close(s.done)
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.WithError(err).Warn("Read failed")
			}
			return
		}

		for _, line := range strings.Split(string(data), crlf) {
			switch {
			case line == "PING":
				if err := s.enqueue([]byte("PONG" + crlf)); err != nil {
					c.log.WithError(err).Warn("PONG failed")
				}
			case strings.HasPrefix(line, "-ERR"):
				c.log.WithField("server", line).Warn("Server error")
			case strings.HasPrefix(line, "INFO"):
				c.log.Debug("Server info received")
			}
		}
	}
}
