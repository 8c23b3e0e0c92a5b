package hub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-vrrig/pkg/protocol"
)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	name   string
	logger *slog.Logger

	// Registered clients
	clients map[*Client]bool

	// Latest rig snapshot per player, sent to new clients
	latest map[uuid.UUID]Message

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Guards client count reads from outside the run loop
	mu sync.RWMutex

	running atomic.Bool

	broadcasts atomic.Uint64
	dropped    atomic.Uint64
	coalesced  atomic.Uint64
}

// New creates a new Hub
func New(name string, logger *slog.Logger) *Hub {
	return &Hub{
		name:       name,
		logger:     logger.With("hub", name),
		clients:    make(map[*Client]bool),
		latest:     make(map[uuid.UUID]Message),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		h.mu.Lock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			for _, msg := range h.latest {
				h.queue(client, msg)
			}
			h.logger.Info("client connected", "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "clients", count)

		case msg := <-h.broadcast:
			switch {
			case msg.leave:
				delete(h.latest, msg.Player)
			case msg.Player != uuid.Nil:
				h.latest[msg.Player] = msg
			}
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()
			for _, client := range clients {
				h.queue(client, msg)
			}
		}
	}
}

// queue hands msg to client, dropping the client if its buffer is full.
// Only called from Run.
func (h *Hub) queue(client *Client, msg Message) {
	select {
	case client.send <- msg:
	default:
		h.mu.Lock()
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
		}
		h.mu.Unlock()
		h.logger.Warn("dropped slow client")
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
		h.broadcasts.Add(1)
	default:
		h.dropped.Add(1)
		h.logger.Debug("broadcast channel full, dropping message")
	}
}

// BroadcastRig encodes and broadcasts a rig snapshot. It never blocks.
func (h *Hub) BroadcastRig(state protocol.RigState) {
	msg, err := NewRigMessage(state)
	if err != nil {
		h.logger.Error("encode rig", "error", err)
		return
	}
	h.Broadcast(msg)
}

// BroadcastMessage encodes and broadcasts any envelope.
func (h *Hub) BroadcastMessage(m *protocol.Message) error {
	msg, err := NewEnvelopeMessage(m)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// Leave announces that player stopped publishing and drops its cached
// snapshot.
func (h *Hub) Leave(player uuid.UUID, reason string) error {
	msg, err := protocol.NewLeaveMessage(player, reason)
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	h.Broadcast(Message{Player: player, Data: data, leave: true})
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Stats contains hub statistics
type Stats struct {
	Name       string `json:"name"`
	Clients    int    `json:"clients"`
	Broadcasts uint64 `json:"broadcasts"`
	Dropped    uint64 `json:"dropped"`
	Coalesced  uint64 `json:"coalesced"` // Superseded snapshots skipped by slow clients
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		Name:       h.name,
		Clients:    h.ClientCount(),
		Broadcasts: h.broadcasts.Load(),
		Dropped:    h.dropped.Load(),
		Coalesced:  h.coalesced.Load(),
	}
}

// Handler returns the websocket handler that attaches connections to the hub.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		client, ok := NewClient(h, c)
		if !ok {
			return
		}
		client.Run()
	})
}

// RegisterRoutes mounts the hub websocket at path, plus a stats endpoint at
// path + "/stats".
func (h *Hub) RegisterRoutes(app fiber.Router, path string) {
	app.Get(path+"/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})
	app.Use(path, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get(path, h.Handler())
}
