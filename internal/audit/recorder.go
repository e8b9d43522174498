package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vrrelay/internal/relay"
	"vrrelay/internal/worker"
	"vrrelay/pkg/vrevent"
)

// Recorder writes session rows as clients come and go. Writes happen on a
// single worker so a session's insert always lands before its update.
type Recorder struct {
	relay.NopObserver

	store   Store
	pool    *worker.Pool
	timeout time.Duration
	logger  *slog.Logger

	mu   sync.Mutex
	sent map[string]int64
}

func NewRecorder(store Store, queue int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	pool := worker.NewPool("audit", 1, queue, logger)
	pool.Start()
	return &Recorder{
		store:   store,
		pool:    pool,
		timeout: 5 * time.Second,
		logger:  logger,
		sent:    make(map[string]int64),
	}
}

func (r *Recorder) ClientConnected(c relay.ClientInfo) {
	r.mu.Lock()
	r.sent[c.ID] = 0
	r.mu.Unlock()

	session := &Session{ID: c.ID, Address: c.Address, ConnectedAt: c.ConnectedAt}
	r.submit("session_open", c.ID, func(ctx context.Context) error {
		return r.store.Open(ctx, session)
	})
}

func (r *Recorder) ClientDropped(c relay.ClientInfo) {
	r.mu.Lock()
	n, ok := r.sent[c.ID]
	delete(r.sent, c.ID)
	r.mu.Unlock()
	if !ok {
		return
	}

	at := time.Now()
	r.submit("session_close", c.ID, func(ctx context.Context) error {
		return r.store.Close(ctx, c.ID, at, n)
	})
}

func (r *Recorder) EventRelayed(_ vrevent.Event, source relay.ClientInfo, _, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sent[source.ID]; ok {
		r.sent[source.ID]++
	}
}

func (r *Recorder) submit(op, id string, fn func(ctx context.Context) error) {
	err := r.pool.TrySubmit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return fn(ctx)
	})
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, worker.ErrClosed) {
			level = slog.LevelDebug
		}
		r.logger.Log(context.Background(), level, "audit_write_dropped", "op", op, "client_id", id, "error", err)
	}
}

// Close flushes pending writes.
func (r *Recorder) Close() {
	r.pool.Wait()
}
