package stats

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"vrrelay/internal/relay"
	"vrrelay/internal/worker"
	"vrrelay/pkg/vrevent"
)

// Recorder feeds relayed events into a Store from a worker pool so the
// relay loop never waits on Redis.
type Recorder struct {
	relay.NopObserver

	store   *Store
	pool    *worker.Pool
	timeout time.Duration
	logger  *slog.Logger
	dropLog rate.Sometimes
}

// NewRecorder starts a pool of workers writing to store. Call Close to
// drain it.
func NewRecorder(store *Store, workers, queue int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	pool := worker.NewPool("stats", workers, queue, logger)
	pool.Start()
	return &Recorder{
		store:   store,
		pool:    pool,
		timeout: 3 * time.Second,
		logger:  logger,
		dropLog: rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
}

func (r *Recorder) EventRelayed(e vrevent.Event, _ relay.ClientInfo, _, _ int) {
	name, at := e.Name(), time.Now()
	err := r.pool.TrySubmit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.store.Record(ctx, name, at)
	})
	if errors.Is(err, worker.ErrQueueFull) {
		r.dropLog.Do(func() {
			r.logger.Warn("stats_queue_full", "event", name)
		})
	}
}

// Close waits for queued writes, then stops the workers.
func (r *Recorder) Close() {
	r.pool.Wait()
}
