package relay

import (
	"log/slog"
	"sync"
	"time"

	"vrrelay/pkg/vrnet"
)

// Client is one accepted connection and the address it had at accept time.
type Client struct {
	ID          string
	Description string
	ConnectedAt time.Time
	conn        *vrnet.Conn
}

// ClientInfo is a copyable view of a Client (or of a non-TCP event source).
type ClientInfo struct {
	ID          string    `json:"id"`
	Address     string    `json:"address"`
	ConnectedAt time.Time `json:"connected_at"`
}

func (c *Client) Info() ClientInfo {
	return ClientInfo{ID: c.ID, Address: c.Description, ConnectedAt: c.ConnectedAt}
}

// Registry holds the connected clients in accept order.
//
// Only the relay loop mutates it. The lock exists for readers on other
// goroutines such as the admin API.
type Registry struct {
	clients []*Client
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = append(r.clients, c)
	r.logger.Info("client_added",
		"client_id", c.ID,
		"address", c.Description,
	)
}

// Remove unregisters the client with id, returning it so the caller can
// close it. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.clients {
		if c.ID != id {
			continue
		}
		r.clients = append(r.clients[:i], r.clients[i+1:]...)
		r.logger.Info("client_dropped",
			"client_id", c.ID,
			"address", c.Description,
		)
		return c, true
	}
	return nil, false
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Snapshot returns the current clients; later Add/Remove calls do not
// affect the returned slice.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, len(r.clients))
	copy(out, r.clients)
	return out
}

func (r *Registry) Infos() []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ClientInfo, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c.Info())
	}
	return out
}

// CloseAll closes every connection and empties the registry.
func (r *Registry) CloseAll() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	closed := r.clients
	for _, c := range closed {
		c.conn.Close()
		r.logger.Info("client_connection_closed",
			"client_id", c.ID,
			"address", c.Description,
		)
	}
	r.clients = nil
	return closed
}

// removalSet collects clients to drop at the end of a cycle, once each,
// in the order they failed.
type removalSet struct {
	order []string
	seen  map[string]struct{}
}

func newRemovalSet() *removalSet {
	return &removalSet{seen: make(map[string]struct{})}
}

func (s *removalSet) add(id string) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *removalSet) has(id string) bool {
	_, ok := s.seen[id]
	return ok
}
