// Package wsbridge lets browsers and other WebSocket peers join the relay.
// Each text message is one event in the same JSON shape used on TCP.
package wsbridge

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"vrrelay/internal/relay"
	"vrrelay/pkg/vrevent"
)

// Injector is the part of the relay server the bridge feeds.
type Injector interface {
	Inject(source relay.ClientInfo, e vrevent.Event) bool
	RelayToSource() bool
}

type outbound struct {
	sourceID string
	payload  []byte
}

// Hub tracks connected WebSocket peers. All map access happens on the Run
// goroutine; everything else talks to it through channels.
type Hub struct {
	relay.NopObserver

	injector Injector
	clients  map[*Client]struct{}
	register chan *Client
	leave    chan *Client
	outbound chan outbound
	done     chan struct{}
	count    atomic.Int32
	logger   *slog.Logger
	dropLog  rate.Sometimes
}

func NewHub(injector Injector, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		injector: injector,
		clients:  make(map[*Client]struct{}),
		register: make(chan *Client),
		leave:    make(chan *Client),
		outbound: make(chan outbound, 256),
		done:     make(chan struct{}),
		logger:   logger,
		dropLog:  rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
}

// Run serves the hub until ctx is done, then disconnects every peer.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int32(len(h.clients)))
			h.logger.Info("ws_client_added", "client_id", c.info.ID, "address", c.info.Address, "subject", c.subject)

		case c := <-h.leave:
			h.drop(c)

		case msg := <-h.outbound:
			for c := range h.clients {
				if c.info.ID == msg.sourceID && !h.injector.RelayToSource() {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					// slow reader
					h.drop(c)
				}
			}

		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

// ClientCount is the number of connected WebSocket peers.
func (h *Hub) ClientCount() int { return int(h.count.Load()) }

// join and part are safe to call after Run has returned.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) part(c *Client) {
	select {
	case h.leave <- c:
	case <-h.done:
	}
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.count.Store(int32(len(h.clients)))
	close(c.send)
	h.logger.Info("ws_client_removed", "client_id", c.info.ID, "address", c.info.Address)
}

// EventRelayed forwards a relayed event to the WebSocket peers. It is called
// on the relay loop and never blocks it.
func (h *Hub) EventRelayed(e vrevent.Event, source relay.ClientInfo, _, _ int) {
	payload, err := vrevent.Encode(e)
	if err != nil {
		return
	}
	select {
	case h.outbound <- outbound{sourceID: source.ID, payload: payload}:
	default:
		h.dropLog.Do(func() {
			h.logger.Warn("ws_broadcast_dropped", "event", e.Name())
		})
	}
}
