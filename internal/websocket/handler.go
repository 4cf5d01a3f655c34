package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs runs one connection until it closes. The read loop stays on the
// caller's goroutine, as fiber's websocket handler requires.
func ServeWs(hub *Hub, conn *websocket.Conn, userID uuid.UUID, handler FrameHandler) {
	client := NewClient(hub, conn, userID)
	hub.register <- client

	go client.writePump(hub.logger)
	client.readPump(handler, hub.logger)
}

// Disconnect unregisters a client as if its connection had dropped.
func (h *Hub) Disconnect(c *Client) {
	h.unregister <- c
}

// Register adds a client that is not backed by a socket read loop.
func (h *Hub) Register(c *Client) {
	h.register <- c
}
