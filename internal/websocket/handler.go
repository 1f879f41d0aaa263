package websocket

import (
	"intelligencehub-console/internal/dto"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the connection for consoleID and pumps until the tab goes away.
// The hub sends snapshot() first, read at registration, so no change can fall
// between the snapshot and the first change frame.
func ServeWs(hub *Hub, c *websocket.Conn, consoleID string, snapshot func() dto.SessionResponse) {
	client := &Client{
		Hub:       hub,
		Conn:      c,
		ID:        uuid.NewString(),
		ConsoleID: consoleID,
		Send:      make(chan []byte, 256),
		snapshot:  snapshot,
	}
	if !hub.join(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
