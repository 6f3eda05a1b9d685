package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"inkwell/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const maxFeedConns = 10000

var (
	ErrFeedFull   = errors.New("feed connection limit reached")
	ErrFeedClosed = errors.New("feed is shutting down")
)

// FeedHub broadcasts post events to connected websocket readers.
type FeedHub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	nextID  uint64
	limit   int
	closed  bool
}

// NewFeedHub creates an empty hub.
func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients: make(map[*Client]struct{}),
		limit:   maxFeedConns,
	}
}

// Name implements Sink.
func (h *FeedHub) Name() string { return "feed" }

// Register adds conn to the hub. conn may be nil in tests.
func (h *FeedHub) Register(conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrFeedClosed
	}
	if len(h.clients) >= h.limit {
		return nil, ErrFeedFull
	}

	h.nextID++
	client := newClient(h, conn, h.nextID)
	h.clients[client] = struct{}{}
	observability.FeedConnections.Inc()
	return client, nil
}

// Unregister removes client and closes its send queue. Safe to call twice.
func (h *FeedHub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	observability.FeedConnections.Dec()
}

// Count returns the number of connected readers.
func (h *FeedHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues data for every reader and returns how many accepted it.
func (h *FeedHub) Broadcast(data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		if c.TrySend(data) {
			delivered++
		}
	}
	return delivered
}

// Deliver implements Sink by broadcasting the JSON encoded event.
func (h *FeedHub) Deliver(_ context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	h.Broadcast(data)
	return nil
}

// Shutdown closes every reader's queue, which makes its write pump send a
// close frame and exit.
func (h *FeedHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.Send)
		observability.FeedConnections.Dec()
	}
	return nil
}
