package websocket

import (
	"sync"

	"github.com/gorilla/websocket"

	"localhub/pkg/logger"
)

// Client represents one WebSocket connection. A user may hold several clients
// at once (multi-device); each gets its own connection ID.
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	mu     sync.Mutex
	closed bool
}

// enqueue puts payload on the send buffer. Delivery is fire-and-forget: a
// full buffer or an already closed connection drops the payload. Serialized
// with shutdown, so a broadcaster holding a stale member snapshot can never
// send on a closed channel.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// shutdown closes the send channel exactly once. Safe to call concurrently
// with enqueue and with itself.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// ReadPump reads events from the connection and dispatches them one at a
// time. Handlers for a single connection therefore never run concurrently
// with each other.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Disconnect(c)
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error for user %s: %v", c.UserID, err)
			}
			break
		}

		m.HandleEvent(c, message)
	}
}

// WritePump drains the Send channel onto the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Warn("WebSocket write error for user %s: %v", c.UserID, err)
			return
		}
	}
}
