package websocket

import (
	"sync/atomic"

	"own-ai-chat/internal/pkg/logger"

	"github.com/google/uuid"
)

// Hub owns connection lifecycles. Room membership lives in Rooms; when a
// connection goes away the hub takes it out of its room before closing it.
type Hub struct {
	Rooms *Registry

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	connected  atomic.Int64

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	h := &Hub{
		Rooms:      NewRegistry(),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     log,
	}
	h.Rooms.onEvict = func(c *Client) {
		h.logger.Warn("Hub", "Send buffer full, dropping connection", map[string]interface{}{"user_id": c.UserID})
		go func() { h.unregister <- c }()
	}
	return h
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.connected.Add(1)
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			room, _ := h.Rooms.RoomOf(client)
			// An evicted client may still be reading frames, so membership is
			// cleared even when the client is already gone.
			h.Rooms.Leave(client)
			if _, ok := h.clients[client]; !ok {
				continue
			}
			delete(h.clients, client)
			client.close()
			h.connected.Add(-1)
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"user_id": client.UserID, "room": room})
		}
	}
}

// Connected returns the number of live connections.
func (h *Hub) Connected() int64 {
	return h.connected.Load()
}

// Broadcast delivers event to the room of chatID.
func (h *Hub) Broadcast(chatID uuid.UUID, event interface{}) (int, error) {
	return h.Rooms.Broadcast(chatID, event)
}
