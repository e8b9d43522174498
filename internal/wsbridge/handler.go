package wsbridge

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"vrrelay/internal/middleware/auth"
	"vrrelay/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// VR dashboards are served from arbitrary origins
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades the request and attaches the peer to hub. When mounted
// behind auth.RequireToken, peers with the observer role are receive-only.
func Handler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetString("subject")
		canSend := c.GetString("role") != auth.RoleObserver

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already written the HTTP error
			hub.logger.Debug("ws_upgrade_failed", "error", err)
			return
		}

		info := relay.ClientInfo{
			ID:          "ws-" + uuid.NewString(),
			Address:     c.Request.RemoteAddr,
			ConnectedAt: time.Now(),
		}
		client := newClient(info, subject, canSend, conn, hub)
		if !hub.join(client) {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down"),
				time.Now().Add(WriteWait))
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}
