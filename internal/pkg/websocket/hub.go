// Package websocket bridges live document store streams to WebSocket
// clients. Clients subscribe to a topic (one chat session or one user's
// notification inbox); the first client on a topic opens the underlying
// store subscription and the last one leaving releases it.
package websocket

import (
	"sync"

	"github.com/rs/zerolog"
)

// Hub maintains the set of active clients grouped by topic and fans
// snapshots out to them.
type Hub struct {
	// Registered clients organized by topic
	clients map[string]map[*Client]bool

	// Channel for snapshots to fan out
	broadcast chan *envelope

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex

	// Invoked when a topic gains its first client / loses its last one.
	// Set before Run; the handler uses them to open and release the
	// backing store subscription.
	onTopicOpened func(topic string)
	onTopicClosed func(topic string)

	logger zerolog.Logger
}

// envelope pairs a serialized snapshot with its topic.
type envelope struct {
	topic string
	data  []byte
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan *envelope, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

// SetTopicHooks installs the open/close callbacks. Must be called before
// Run.
func (h *Hub) SetTopicHooks(opened, closed func(topic string)) {
	h.onTopicOpened = opened
	h.onTopicClosed = closed
}

// Run starts the hub loop, handling registrations and fan-out.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.broadcast:
			h.fanOut(env)
		}
	}
}

// Broadcast queues a serialized snapshot for every client on the topic.
func (h *Hub) Broadcast(topic string, data []byte) {
	h.broadcast <- &envelope{topic: topic, data: data}
}

// ClientCount returns the number of clients on a topic.
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	first := false
	if _, ok := h.clients[client.topic]; !ok {
		h.clients[client.topic] = make(map[*Client]bool)
		first = true
	}
	h.clients[client.topic][client] = true
	h.mu.Unlock()

	h.logger.Info().
		Str("topic", client.topic).
		Str("uid", client.uid).
		Str("addr", client.conn.RemoteAddr().String()).
		Msg("Client registered")

	if first && h.onTopicOpened != nil {
		h.onTopicOpened(client.topic)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	last := false
	if clients, ok := h.clients[client.topic]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
			if len(clients) == 0 {
				delete(h.clients, client.topic)
				last = true
			}
		}
	}
	h.mu.Unlock()

	h.logger.Info().
		Str("topic", client.topic).
		Str("uid", client.uid).
		Msg("Client unregistered")

	if last && h.onTopicClosed != nil {
		h.onTopicClosed(client.topic)
	}
}

func (h *Hub) fanOut(env *envelope) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients[env.topic]))
	for client := range h.clients[env.topic] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- env.data:
		default:
			// Send buffer full: the client is slow or gone, drop it.
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}
