package ws

import (
	"log/slog"
	"time"

	"spark-ws/internal/models"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read next pong message
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Max inbound message size. Client frames are small control messages.
	maxMessageSize = 64 * 1024
)

// Client is a websocket connection. The hub writes to it through send; only
// the hub closes send.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
	log  *slog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, id string, buffer int) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, buffer),
		id:   id,
		log:  hub.log.With("conn", id),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues a frame without blocking.
func (c *Client) Send(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which closes the socket.
func (c *Client) Close() { close(c.send) }

// ReadPump pumps messages from the websocket to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("[CLIENT] Unexpected close", "error", err)
			}
			return
		}

		var msg models.Inbound
		err = json.Unmarshal(message, &msg)
		c.hub.receive(inbound{conn: c, msg: msg, err: err})
	}
}

// WritePump pumps messages from the hub to the websocket
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Error("[CLIENT] Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Error("[CLIENT] Failed to send ping", "error", err)
				return
			}
		}
	}
}
