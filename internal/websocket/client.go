package websocket

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"taskchat/internal/apperr"
	"taskchat/internal/config"
	"taskchat/internal/metrics"
	"taskchat/internal/models"
	"taskchat/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var errSendBufferFull = errors.New("send buffer full")

// FrameHandler processes one inbound text frame from c.
type FrameHandler interface {
	HandleFrame(c *Client, data []byte)
}

// Client is one authenticated websocket connection. Outbound frames go
// through send and are written by WritePump only; no other goroutine
// touches the socket except through the gorilla control-frame methods.
type Client struct {
	ID       string
	Identity models.Identity

	registry *Registry
	conn     *websocket.Conn
	cfg      config.RealtimeConfig

	send chan []byte
	ping chan struct{}
	done chan struct{}

	alive     atomic.Bool
	lastPong  atomic.Int64
	closeOnce sync.Once
}

// NewClient wraps conn for identity. conn may be nil in tests that only
// exercise fan-out.
func NewClient(registry *Registry, conn *websocket.Conn, identity models.Identity, cfg config.RealtimeConfig) *Client {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = config.DefaultRealtime().SendBuffer
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = config.DefaultRealtime().WriteWait
	}

	c := &Client{
		ID:       uuid.NewString(),
		Identity: identity,
		registry: registry,
		conn:     conn,
		cfg:      cfg,
		send:     make(chan []byte, cfg.SendBuffer),
		ping:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	c.alive.Store(true)
	c.lastPong.Store(time.Now().UnixNano())
	return c
}

// Send marshals v and queues it for this connection only.
func (c *Client) Send(v any) bool {
	data, err := encode(v)
	if err != nil {
		logger.Error("Error marshaling frame for connection %s: %v", c.ID, err)
		return false
	}
	return c.enqueue(data)
}

// enqueue never blocks. A closed client or a full queue drops the frame.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		metrics.Deliveries.WithLabelValues("queued").Inc()
		return true
	default:
		metrics.Deliveries.WithLabelValues("dropped").Inc()
		err := apperr.Transport("enqueue", errSendBufferFull)
		logger.Warn("Dropping frame for user %d connection %s: %v", c.Identity.UserID, c.ID, err)
		return false
	}
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close unregisters the client and closes the socket. It is safe to call
// from any goroutine and more than once; the client is out of the
// registry when the first call returns.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.registry != nil {
			c.registry.Unregister(c)
		}
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// MarkAlive records a pong.
func (c *Client) MarkAlive() {
	c.alive.Store(true)
	c.lastPong.Store(time.Now().UnixNano())
}

func (c *Client) Alive() bool {
	return c.alive.Load()
}

func (c *Client) LastPong() time.Time {
	return time.Unix(0, c.lastPong.Load())
}

// queuePing asks the write pump to send a ping; at most one is pending.
func (c *Client) queuePing() {
	select {
	case c.ping <- struct{}{}:
	default:
	}
}

func (c *Client) ReadPump(handler FrameHandler) {
	defer c.Close()

	if c.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	}
	c.conn.SetPongHandler(func(string) error {
		c.MarkAlive()
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Error("WebSocket error for user %d: %v", c.Identity.UserID, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		handler.HandleFrame(c, message)
	}
}

func (c *Client) WritePump() {
	defer c.Close()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Warn("Write error for user %d: %v", c.Identity.UserID, apperr.Transport("write", err))
				return
			}

		case <-c.ping:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debug("Ping failed for user %d: %v", c.Identity.UserID, err)
				return
			}
		}
	}
}

// Run starts both pumps and blocks until the connection ends.
func (c *Client) Run(handler FrameHandler) {
	go c.WritePump()
	c.ReadPump(handler)
}
