// Package notifications delivers live feed events to websocket clients.
package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Connection limits enforced by Register.
const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

// Register errors.
var (
	ErrServerFull  = errors.New("server connection limit reached")
	ErrUserTooMany = errors.New("user connection limit reached")
	ErrHubShutdown = errors.New("hub is shutting down")
)

// Hub tracks this replica's feed connections by user.
type Hub struct {
	mu     sync.RWMutex
	users  map[uint]map[*Client]struct{}
	count  int
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{users: make(map[uint]map[*Client]struct{})}
}

// Name labels this hub in metrics.
func (h *Hub) Name() string { return "feed" }

// Register adds a connection for userID. conn may be nil for clients that are
// only ever read through Outbox.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.closed:
		return nil, ErrHubShutdown
	case h.count >= maxTotalConns:
		return nil, ErrServerFull
	case len(h.users[userID]) >= maxConnsPerUser:
		return nil, ErrUserTooMany
	}

	if h.users[userID] == nil {
		h.users[userID] = make(map[*Client]struct{})
	}
	c := newClient(h, conn, userID)
	h.users[userID][c] = struct{}{}
	h.count++
	observability.WebSocketConnectionsTotal.Inc()
	return c, nil
}

// Unregister drops a client. Dropping one twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.users[c.UserID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.users, c.UserID)
	}
	h.count--
	observability.WebSocketConnectionsTotal.Dec()
	c.close()
}

// SendToUser delivers message to each of userID's connections.
func (h *Hub) SendToUser(userID uint, message string) {
	data := []byte(message)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[userID] {
		c.Deliver(data)
	}
}

// SendToAll delivers message to every connection.
func (h *Hub) SendToAll(message string) {
	data := []byte(message)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.users {
		for c := range set {
			c.Deliver(data)
		}
	}
}

// ConnectionCount reports the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// ListenTo subscribes to the notifier's Redis channels and hands every
// message to Dispatch until ctx ends.
func (h *Hub) ListenTo(ctx context.Context, n *Notifier) error {
	return n.Subscribe(ctx, h.Dispatch)
}

// Dispatch routes one published payload by its channel name.
func (h *Hub) Dispatch(channel, payload string) {
	if channel == BroadcastChannel {
		h.SendToAll(payload)
		return
	}
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	userID, err := strconv.ParseUint(raw, 10, 0)
	if !ok || err != nil || userID == 0 {
		middleware.Logger.Warn("invalid notification channel", slog.String("channel", channel))
		return
	}
	h.SendToUser(uint(userID), payload)
}

// Shutdown drops every client and refuses new ones. Each client's WritePump
// sends the close frame.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	for _, set := range h.users {
		for c := range set {
			c.close()
		}
	}
	observability.WebSocketConnectionsTotal.Sub(float64(h.count))
	h.users = make(map[uint]map[*Client]struct{})
	h.count = 0
	return nil
}
