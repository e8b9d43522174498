package stats

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrrelay/internal/relay"
	"vrrelay/pkg/vrevent"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewStore(mr.Addr(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestStore_RecordAndCounts(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, "Head/Position", at))
	require.NoError(t, store.Record(ctx, "Head/Position", at.Add(time.Second)))
	require.NoError(t, store.Record(ctx, "Button/Down", at))

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Head/Position": 2, "Button/Down": 1}, counts)

	assert.Equal(t, "2", mr.HGet("test:events", "Head/Position"))

	last, ok, err := store.LastSeen(ctx, "Head/Position")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, last.Equal(at.Add(time.Second)))
}

func TestStore_LastSeenUnknown(t *testing.T) {
	store, _ := newTestStore(t)

	_, ok, err := store.LastSeen(context.Background(), "Nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Reset(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "A", time.Now()))
	require.NoError(t, store.Reset(ctx))

	assert.False(t, mr.Exists("test:events"))
	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestStore_RedisURL(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewStore("redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Record(context.Background(), "A", time.Now()))
	assert.Equal(t, "1", mr.HGet(DefaultPrefix+":events", "A"))
}

func TestStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewStore(addr, "test")
	assert.ErrorContains(t, err, "failed to connect to Redis")
}

func TestRecorder_CountsRelayedEvents(t *testing.T) {
	store, _ := newTestStore(t)
	rec := NewRecorder(store, 2, 16, slog.New(slog.NewTextHandler(io.Discard, nil)))

	src := relay.ClientInfo{ID: "a"}
	rec.EventRelayed(vrevent.NewEmpty("Tick"), src, 1, 0)
	rec.EventRelayed(vrevent.NewEmpty("Tick"), src, 1, 0)
	rec.EventRelayed(vrevent.NewInt32("Score", 3), src, 1, 0)
	rec.Close()

	counts, err := store.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["Tick"])
	assert.Equal(t, int64(1), counts["Score"])
}
