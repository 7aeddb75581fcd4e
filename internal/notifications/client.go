package notifications

import (
	"log/slog"
	"sync"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// Clients only ever send control frames.
	maxInboundBytes = 512

	outboxSize = 64
)

// Client is one websocket connection subscribed to the live feed.
//
// The hub queues messages into the outbox and closes done when it drops the
// client. WritePump is the only goroutine that writes to the connection.
type Client struct {
	UserID uint

	hub  *Hub
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
	stop sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		UserID: userID,
		hub:    hub,
		conn:   conn,
		out:    make(chan []byte, outboxSize),
		done:   make(chan struct{}),
	}
}

// Outbox exposes the queued messages.
func (c *Client) Outbox() <-chan []byte { return c.out }

// Done is closed once the client has been removed from its hub.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) close() {
	c.stop.Do(func() { close(c.done) })
}

// Deliver queues message without blocking. It reports false when the client
// is gone or its outbox is full; either way the message is dropped.
func (c *Client) Deliver(message []byte) bool {
	select {
	case <-c.done:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "closed").Inc()
		return false
	default:
	}

	select {
	case c.out <- message:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "full").Inc()
		middleware.Logger.Warn("feed outbox full, message dropped",
			slog.Uint64("user_id", uint64(c.UserID)), slog.Int("outbox", outboxSize))
		return false
	}
}

// ReadPump keeps the read deadline fresh from pong frames and returns when the
// peer disconnects. It removes the client from the hub on the way out.
func (c *Client) ReadPump() {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(maxInboundBytes)
	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
			middleware.Logger.Debug("feed connection read failed",
				slog.Uint64("user_id", uint64(c.UserID)), slog.String("error", err.Error()))
		}
		return
	}
}

// WritePump flushes the outbox and pings the peer until the client is
// dropped, then sends a going-away close frame.
func (c *Client) WritePump() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg := <-c.out:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}
