package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // Must be less than pongWait

	// maxMessageSize bounds what a dashboard may send us
	maxMessageSize = 4 * 1024

	// sendBuffer is how many messages a client may fall behind before it is
	// dropped
	sendBuffer = 128
)

// Client is one dashboard websocket attached to a Hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewClient creates a client and registers it with the hub. ok is false if
// the hub has stopped.
func NewClient(hub *Hub, conn *websocket.Conn) (*Client, bool) {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBuffer),
	}
	select {
	case hub.register <- client:
		return client, true
	case <-hub.done:
		return nil, false
	}
}

// Run starts the write pump and blocks in the read pump until the
// connection closes.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump only detects disconnection and handles pongs. Dashboards never
// send anything meaningful.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only goroutine writing to the connection. When it falls
// behind, queued snapshots of the same player are coalesced so only the
// newest one is written.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			batch, open := c.drain(msg)
			out := coalesce(batch)
			if skipped := len(batch) - len(out); skipped > 0 {
				c.hub.coalesced.Add(uint64(skipped))
			}
			for _, m := range out {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, m.Data); err != nil {
					return
				}
			}
			if !open {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drain collects first plus everything already queued. open is false if
// the hub closed the channel meanwhile.
func (c *Client) drain(first Message) (batch []Message, open bool) {
	batch = append(batch, first)
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return batch, false
			}
			batch = append(batch, msg)
		default:
			return batch, true
		}
	}
}

// coalesce drops every rig snapshot that a later snapshot of the same
// player supersedes. Leaves and playerless messages are kept, and a leave
// ends the run of snapshots it follows.
func coalesce(batch []Message) []Message {
	if len(batch) < 2 {
		return batch
	}
	keep := make([]bool, len(batch))
	last := make(map[uuid.UUID]int)
	for i, m := range batch {
		keep[i] = true
		if m.Player == uuid.Nil {
			continue
		}
		if m.leave {
			delete(last, m.Player)
			continue
		}
		if j, ok := last[m.Player]; ok {
			keep[j] = false
		}
		last[m.Player] = i
	}
	out := make([]Message, 0, len(batch))
	for i, m := range batch {
		if keep[i] {
			out = append(out, m)
		}
	}
	return out
}
