package audit

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrrelay/internal/relay"
	"vrrelay/pkg/vrevent"
)

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	order    []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]*Session)}
}

func (m *memoryStore) Open(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	m.order = append(m.order, s.ID)
	return nil
}

func (m *memoryStore) Close(_ context.Context, id string, at time.Time, eventsSent int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.DisconnectedAt = &at
	s.EventsSent = eventsSent
	return nil
}

func (m *memoryStore) Recent(_ context.Context, limit int) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Session
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *m.sessions[m.order[i]])
	}
	return out, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_SessionLifecycle(t *testing.T) {
	store := newMemoryStore()
	rec := NewRecorder(store, 16, quietLogger())

	a := relay.ClientInfo{ID: "a", Address: "10.0.0.1:5000", ConnectedAt: time.Now()}
	b := relay.ClientInfo{ID: "b", Address: "10.0.0.2:5000", ConnectedAt: time.Now()}
	rec.ClientConnected(a)
	rec.ClientConnected(b)

	rec.EventRelayed(vrevent.NewEmpty("x"), a, 2, 0)
	rec.EventRelayed(vrevent.NewEmpty("y"), a, 2, 0)
	rec.EventRelayed(vrevent.NewEmpty("z"), b, 2, 0)
	// injected events have no session
	rec.EventRelayed(vrevent.NewEmpty("w"), relay.ClientInfo{ID: "ws-1"}, 2, 0)

	rec.ClientDropped(a)
	rec.Close()

	sa := store.sessions["a"]
	require.NotNil(t, sa)
	require.NotNil(t, sa.DisconnectedAt)
	assert.Equal(t, int64(2), sa.EventsSent)
	assert.Equal(t, "10.0.0.1:5000", sa.Address)

	sb := store.sessions["b"]
	require.NotNil(t, sb)
	assert.Nil(t, sb.DisconnectedAt)
	assert.NotContains(t, store.sessions, "ws-1")
}

func TestRecorder_DropUnknownClientIsIgnored(t *testing.T) {
	store := newMemoryStore()
	rec := NewRecorder(store, 4, quietLogger())
	rec.ClientDropped(relay.ClientInfo{ID: "ghost"})
	rec.Close()

	assert.Empty(t, store.sessions)
}

func TestRecorder_WritesAfterCloseAreDropped(t *testing.T) {
	store := newMemoryStore()
	rec := NewRecorder(store, 4, quietLogger())
	rec.Close()

	rec.ClientConnected(relay.ClientInfo{ID: "late"})
	assert.Empty(t, store.sessions)
}

func TestSession_TableName(t *testing.T) {
	assert.Equal(t, "relay_sessions", Session{}.TableName())
}

// TestGormStore runs against a real Postgres when TEST_DATABASE_URL is set.
func TestGormStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres test")
	}

	db, err := OpenPostgres(dsn)
	require.NoError(t, err)
	store := NewGormStore(db)
	ctx := context.Background()

	id := uuid.NewString()
	t.Cleanup(func() { db.Delete(&Session{}, "id = ?", id) })

	connected := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.Open(ctx, &Session{ID: id, Address: "127.0.0.1:1", ConnectedAt: connected}))
	require.NoError(t, store.Close(ctx, id, connected.Add(time.Minute), 9))

	recent, err := store.Recent(ctx, 100)
	require.NoError(t, err)
	var found *Session
	for i := range recent {
		if recent[i].ID == id {
			found = &recent[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, int64(9), found.EventsSent)
	require.NotNil(t, found.DisconnectedAt)

	assert.ErrorIs(t, store.Close(ctx, uuid.NewString(), time.Now(), 0), ErrSessionNotFound)
}

func TestOpenPostgres_BadDSN(t *testing.T) {
	_, err := OpenPostgres("::not a dsn::")
	assert.ErrorContains(t, err, "invalid DATABASE_URL")
}
