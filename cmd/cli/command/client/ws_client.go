package client

// ws_client.go reads the relay's event stream through the WebSocket bridge.

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"vrrelay/pkg/vrevent"
)

// FollowWebSocket connects to <apiURL>/vrevent and hands each event to
// handle until a Shutdown event, ctx cancellation or a read error.
func FollowWebSocket(ctx context.Context, apiURL, token string, handle func(vrevent.Event)) error {
	u, err := url.Parse(apiURL)
	if err != nil {
		return fmt.Errorf("invalid API URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/vrevent"

	// Connect with auth header
	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		e, err := vrevent.Decode(msg)
		if err != nil {
			continue
		}
		handle(e)
		if vrevent.IsShutdown(e.Name()) {
			return nil
		}
	}
}
