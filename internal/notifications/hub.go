package notifications

import (
	"context"
	"errors"
	"sync"

	"commentboard/internal/middleware"
	"commentboard/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const maxTotalConns = 10000

// ErrHubFull is returned by Register when the connection limit is reached.
var ErrHubFull = errors.New("server connection limit reached")

// Hub fans comment events out to every connected live-feed client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	nextID  uint64
	closed  bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register adds a connection to the hub.
func (h *Hub) Register(conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || len(h.clients) >= maxTotalConns {
		return nil, ErrHubFull
	}

	h.nextID++
	client := newClient(h, conn, h.nextID)
	h.clients[client] = struct{}{}
	observability.WebSocketConnections.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send channel. Safe to call twice.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	observability.WebSocketConnections.Dec()
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every client. Clients whose buffer is full are dropped.
func (h *Hub) BroadcastAll(message string) {
	data := []byte(message)

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.TrySend(data) {
			h.removeLocked(c)
		}
	}
}

// StartWiring subscribes the hub to the notifier's comment channel.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartCommentSubscriber(ctx, h.BroadcastAll)
}

// Shutdown closes every client's send channel; each WritePump then sends a
// close frame and closes its connection.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for client := range h.clients {
		h.removeLocked(client)
	}
	middleware.Logger.Info("live feed hub shut down")
	return nil
}
