package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/kiplystart/kiplystart-backend/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must stay below pongWait

	// Dashboards only listen; anything bigger than a control frame is abuse.
	maxMessageSize = 1024
)

type Conn struct {
	*websocket.Conn
}

// ReadPump keeps the connection alive by answering pongs and discards any
// data frames. It returns when the peer goes away.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error", err, map[string]interface{}{
					"user_id": c.UserID,
				})
			}
			return
		}
	}
}

// WritePump sends queued events and periodic pings. A closed Send channel
// means the hub dropped the client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if !ok {
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.flush(event); err != nil {
				logger.Error("Failed to deliver event", err, map[string]interface{}{
					"user_id": c.UserID,
				})
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush writes event plus whatever else is already queued, one frame each,
// so dashboards can decode every frame as a single Event.
func (c *Client) flush(event []byte) error {
	if err := c.write(websocket.TextMessage, event); err != nil {
		return err
	}
	for pending := len(c.Send); pending > 0; pending-- {
		if err := c.write(websocket.TextMessage, <-c.Send); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) write(messageType int, data []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}
