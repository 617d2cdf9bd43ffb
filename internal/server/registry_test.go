package server

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"set-game-server/internal/setgame"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(zap.NewNop(), NewMetrics("test"), nil)
	t.Cleanup(reg.Close)
	return reg
}

func TestRegistryCreateAndGet(t *testing.T) {
	reg := newTestRegistry(t)

	a := reg.Create()
	b := reg.Create()
	assert.NotEqual(t, a.ID(), b.ID())

	got, ok := reg.Get(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = reg.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.metrics.ActiveRooms))
}

func TestRegistryGetOrCreate(t *testing.T) {
	reg := newTestRegistry(t)

	first := reg.GetOrCreate("table-1")
	second := reg.GetOrCreate("table-1")

	assert.Same(t, first, second)
	assert.Equal(t, "table-1", first.ID())
}

func TestRegistryStats(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	reg.Create()
	busy := reg.GetOrCreate("busy")
	for _, id := range []string{"p1", "p2"} {
		_, err := busy.Join(ctx, JoinRequest{ID: id, Name: id})
		require.NoError(t, err)
	}

	stats := reg.Stats(ctx)
	assert.Equal(t, RoomStats{TotalRooms: 2, RoomsWithPlayers: 1, EmptyRooms: 1, TotalPlayers: 2}, stats)
}

func TestRegistryCleanup(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	empty := reg.GetOrCreate("empty")
	busy := reg.GetOrCreate("busy")
	c := newClient("conn-1", "p1", nil, 8)
	require.NoError(t, busy.Attach(ctx, c))

	assert.Zero(t, reg.Cleanup(ctx, time.Hour))

	assert.Equal(t, 1, reg.Cleanup(ctx, 0))
	_, ok := reg.Get("empty")
	assert.False(t, ok)
	_, ok = reg.Get("busy")
	assert.True(t, ok)
	assert.ErrorIs(t, empty.Do(ctx, func(*setgame.Game) {}), ErrRoomClosed)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.metrics.ActiveRooms))
}

func TestRegistryCleanupAfterLastDetach(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	room := reg.GetOrCreate("room")
	c := newClient("conn-1", "p1", nil, 8)
	require.NoError(t, room.Attach(ctx, c))
	require.NoError(t, room.Detach(ctx, c))

	assert.Zero(t, reg.Cleanup(ctx, time.Hour))
	assert.Equal(t, 1, reg.Cleanup(ctx, 0))
}

func TestRegistryClose(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(zap.NewNop(), NewMetrics("test"), nil)
	room := reg.GetOrCreate("room")

	reg.Close()

	_, ok := reg.Get("room")
	assert.False(t, ok)
	assert.ErrorIs(t, room.Do(ctx, func(*setgame.Game) {}), ErrRoomClosed)
	assert.Zero(t, testutil.ToFloat64(reg.metrics.ActiveRooms))
}

func TestRegistryRunStopsWithContext(t *testing.T) {
	reg := newTestRegistry(t)
	reg.GetOrCreate("room")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx, 10*time.Millisecond, 0)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, ok := reg.Get("room")
		return !ok
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
