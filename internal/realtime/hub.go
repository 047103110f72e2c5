// Package realtime pushes listing events to WebSocket subscribers.
package realtime

import (
	"context"
	"sort"
	"sync"

	"github.com/example/foodshare/internal/logging"
	"github.com/example/foodshare/internal/observability"
)

// MessageTypeNewListing announces a freshly created listing.
const MessageTypeNewListing = "new-listing"

// Message is the envelope written to subscribers.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub owns the subscriber set and fans broadcasts out to it.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	// stopped is closed when the current Serve call returns.
	stopped chan struct{}
	mu      sync.RWMutex
}

// NewHub creates a hub; call Serve to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}
}

// Serve runs the hub until ctx is cancelled. It implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	defer func() {
		h.mu.Lock()
		close(h.stopped)
		h.stopped = make(chan struct{})
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			n := h.ClientCount()
			h.closeAll()
			logging.Info().Str("component", "realtime-hub").Int("clients_closed", n).Msg("realtime hub stopped")
			return ctx.Err()

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			observability.RealtimeClients.Set(float64(n))
			logging.Debug().Int("total_clients", n).Msg("realtime client connected")

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) String() string { return "realtime-hub" }

// Broadcast queues msg for every subscriber without blocking. It reports
// false when the queue is full and the message was dropped.
func (h *Hub) Broadcast(msgType string, data interface{}) bool {
	select {
	case h.broadcast <- Message{Type: msgType, Data: data}:
		return true
	default:
		observability.RealtimeDropped.Inc()
		logging.Warn().Str("message_type", msgType).Msg("broadcast queue full, dropping message")
		return false
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	observability.RealtimeClients.Set(float64(n))
	logging.Debug().Int("total_clients", n).Msg("realtime client disconnected")
}

// fanOut delivers msg in client id order. Subscribers whose buffer is full
// are disconnected rather than allowed to stall the hub.
func (h *Hub) fanOut(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			observability.RealtimeDropped.Inc()
			close(c.send)
			delete(h.clients, c)
		}
	}
	observability.RealtimeClients.Set(float64(len(h.clients)))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	observability.RealtimeClients.Set(0)
}

// join registers a client unless the hub stops or ctx ends first.
func (h *Hub) join(ctx context.Context, c *Client) bool {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()

	select {
	case h.register <- c:
		return true
	case <-stopped:
		return false
	case <-ctx.Done():
		return false
	}
}

// leave unregisters a client that the hub still tracks.
func (h *Hub) leave(c *Client) {
	h.mu.RLock()
	stopped := h.stopped
	_, ok := h.clients[c]
	h.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case h.unregister <- c:
	case <-stopped:
	}
}
