package wsbridge

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"vrrelay/internal/relay"
	"vrrelay/pkg/vrevent"
)

const ( // ping pong keeps idle browser tabs connected
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 64 << 10
	SendBuffer     = 256
)

// Client is one WebSocket peer.
type Client struct {
	info    relay.ClientInfo
	subject string
	canSend bool
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
}

func newClient(info relay.ClientInfo, subject string, canSend bool, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		info:    info,
		subject: subject,
		canSend: canSend,
		conn:    conn,
		send:    make(chan []byte, SendBuffer),
		hub:     hub,
	}
}

// readPump turns inbound messages into injected events. Peers without send
// rights are read only to notice pongs and close frames.
func (c *Client) readPump() {
	defer func() {
		c.hub.part(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	logger := c.hub.logger
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws_read_failed", "client_id", c.info.ID, "error", err)
			}
			return
		}
		if !c.canSend {
			continue
		}

		e, err := vrevent.Decode(message)
		if err != nil {
			logger.Warn("ws_message_rejected", "client_id", c.info.ID, "error", err)
			continue
		}
		if !c.hub.injector.Inject(c.info, e) {
			logger.Warn("ws_inject_dropped", "client_id", c.info.ID, "event", e.Name())
		}
	}
}

// writePump is the only writer on the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.hub.logger.Debug("ws_write_failed", "client_id", c.info.ID, "error", err)
				}
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
