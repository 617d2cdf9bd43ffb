package server

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"set-game-server/internal/setgame"
)

// Registry owns the lifetime of every room. The game package knows nothing
// about it.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	logger   *zap.Logger
	metrics  *Metrics
	archive  *Archive
	gameOpts []setgame.Option
}

func NewRegistry(logger *zap.Logger, metrics *Metrics, archive *Archive, gameOpts ...setgame.Option) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		logger:   logger,
		metrics:  metrics,
		archive:  archive,
		gameOpts: gameOpts,
	}
}

// Create makes a room under a fresh generated id.
func (reg *Registry) Create() *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	id := GenerateRoomID(func(id string) bool {
		_, taken := reg.rooms[id]
		return taken
	})
	return reg.createLocked(id)
}

// GetOrCreate returns the room for id, creating it on first reference.
func (reg *Registry) GetOrCreate(id string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if r, ok := reg.rooms[id]; ok {
		return r
	}
	return reg.createLocked(id)
}

func (reg *Registry) createLocked(id string) *Room {
	r := newRoom(id, reg.logger, reg.metrics, reg.archive, reg.gameOpts...)
	reg.rooms[id] = r
	reg.metrics.ActiveRooms.Set(float64(len(reg.rooms)))
	reg.logger.Info("room created", zap.String("room", id))
	return r
}

func (reg *Registry) Get(id string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[id]
	return r, ok
}

func (reg *Registry) snapshot() []*Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].id < rooms[j].id })
	return rooms
}

func (reg *Registry) Stats(ctx context.Context) RoomStats {
	var stats RoomStats
	for _, r := range reg.snapshot() {
		n, err := r.playerCount(ctx)
		if err != nil {
			continue
		}
		stats.TotalRooms++
		if n > 0 {
			stats.RoomsWithPlayers++
			stats.TotalPlayers += n
		}
	}
	stats.EmptyRooms = stats.TotalRooms - stats.RoomsWithPlayers
	return stats
}

// Cleanup stops and forgets rooms that have had no connections for at least
// ttl. It returns how many were removed.
func (reg *Registry) Cleanup(ctx context.Context, ttl time.Duration) int {
	var stale []*Room
	for _, r := range reg.snapshot() {
		idle, err := r.idle(ctx, ttl)
		if idle || errors.Is(err, ErrRoomClosed) {
			stale = append(stale, r)
		}
	}

	reg.mu.Lock()
	for _, r := range stale {
		if reg.rooms[r.id] == r {
			delete(reg.rooms, r.id)
		}
	}
	reg.metrics.ActiveRooms.Set(float64(len(reg.rooms)))
	reg.mu.Unlock()

	for _, r := range stale {
		r.Stop()
		reg.logger.Info("room cleaned up", zap.String("room", r.id))
	}
	return len(stale)
}

// Run calls Cleanup every interval until ctx is done.
func (reg *Registry) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := reg.Cleanup(ctx, ttl); n > 0 {
				reg.logger.Info("room cleanup completed", zap.Int("removed", n))
			}
		}
	}
}

// Close stops every room.
func (reg *Registry) Close() {
	reg.mu.Lock()
	rooms := reg.rooms
	reg.rooms = make(map[string]*Room)
	reg.metrics.ActiveRooms.Set(0)
	reg.mu.Unlock()

	for _, r := range rooms {
		r.Stop()
	}
}
