package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"set-game-server/internal/setgame"
)

var ErrRoomClosed = errors.New("ROOM_CLOSED: room is closed")

const archiveTimeout = 5 * time.Second

// Room owns one game. Everything that touches the game or the client set
// runs on the room's goroutine, one closure at a time, so every client sees
// the same order of broadcasts.
type Room struct {
	id        string
	game      *setgame.Game
	clients   map[string]*Client // connection id -> client
	idleSince time.Time

	inbox    chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	logger  *zap.Logger
	metrics *Metrics
	archive *Archive
}

func newRoom(id string, logger *zap.Logger, metrics *Metrics, archive *Archive, opts ...setgame.Option) *Room {
	r := &Room{
		id:        id,
		game:      setgame.NewGame(id, opts...),
		clients:   make(map[string]*Client),
		idleSince: time.Now(),
		inbox:     make(chan func()),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.With(zap.String("room", id)),
		metrics:   metrics,
		archive:   archive,
	}
	go r.run()
	return r
}

func (r *Room) ID() string { return r.id }

func (r *Room) run() {
	defer close(r.done)
	for {
		select {
		case fn := <-r.inbox:
			fn()
		case <-r.quit:
			for _, c := range r.clients {
				c.close()
			}
			r.clients = nil
			return
		}
	}
}

// Stop ends the room goroutine and closes every client. It is safe to call
// more than once.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
	<-r.done
}

// Do runs fn on the room goroutine and waits for it to finish.
func (r *Room) Do(ctx context.Context, fn func(g *setgame.Game)) error {
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		fn(r.game)
	}

	select {
	case r.inbox <- job:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-r.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join adds or refreshes a player through the HTTP join path.
func (r *Room) Join(ctx context.Context, req JoinRequest) (setgame.RoomState, error) {
	var state setgame.RoomState
	var joinErr error
	err := r.Do(ctx, func(g *setgame.Game) {
		_, reconnected, err := g.Join(req.ID, req.Name, req.Avatar)
		if err != nil {
			joinErr = err
			r.logger.Info("join rejected", zap.String("player", req.ID), zap.Error(err))
			return
		}
		r.logger.Info("player joined", zap.String("player", req.ID), zap.Bool("reconnection", reconnected))
		state = g.Snapshot()
		r.broadcast("state", state)
	})
	if err != nil {
		return state, err
	}
	return state, joinErr
}

func (r *Room) JoinSpectator(ctx context.Context, req JoinRequest) (setgame.RoomState, error) {
	var state setgame.RoomState
	var joinErr error
	err := r.Do(ctx, func(g *setgame.Game) {
		if _, err := g.JoinSpectator(req.ID, req.Name, req.Avatar); err != nil {
			joinErr = err
			return
		}
		r.logger.Info("spectator requested", zap.String("player", req.ID))
		state = g.Snapshot()
		r.broadcast("state", state)
	})
	if err != nil {
		return state, err
	}
	return state, joinErr
}

func (r *Room) Snapshot(ctx context.Context) (setgame.RoomState, error) {
	var state setgame.RoomState
	err := r.Do(ctx, func(g *setgame.Game) {
		state = g.Snapshot()
	})
	return state, err
}

// Attach registers a connection, sends it the current state and tells the
// room about it. Connections for ids the room does not know are kept as
// observers.
func (r *Room) Attach(ctx context.Context, c *Client) error {
	return r.Do(ctx, func(g *setgame.Game) {
		r.clients[c.id] = c

		reconnected, err := g.Connect(c.playerID)
		if err != nil {
			r.logger.Warn("unknown player connected", zap.String("player", c.playerID))
		} else {
			r.logger.Info("player connected", zap.String("player", c.playerID), zap.Bool("reconnection", reconnected))
		}

		state := g.Snapshot()
		r.send(c, "state", state)
		if reconnected {
			p, _ := g.Player(c.playerID)
			r.broadcast("player_reconnected", PresenceNotification{
				PlayerID:   c.playerID,
				PlayerName: p.Name,
				State:      state,
			})
			return
		}
		r.broadcast("state", state)
	})
}

// Detach removes a connection. The player is disconnected from the game only
// when it was their last connection to this room.
func (r *Room) Detach(ctx context.Context, c *Client) error {
	return r.Do(ctx, func(g *setgame.Game) {
		delete(r.clients, c.id)
		if len(r.clients) == 0 {
			r.idleSince = time.Now()
		}
		if r.hasConnection(c.playerID) {
			return
		}

		p, ok := g.Player(c.playerID)
		if !ok {
			return
		}
		name := p.Name
		removed, err := g.Disconnect(c.playerID)
		if err != nil {
			r.logger.Error("disconnect failed", zap.String("player", c.playerID), zap.Error(err))
			return
		}
		r.logger.Info("player disconnected", zap.String("player", c.playerID), zap.Bool("removed", removed))
		r.broadcast("player_disconnected", PresenceNotification{
			PlayerID:   c.playerID,
			PlayerName: name,
			State:      g.Snapshot(),
		})
	})
}

// Dispatch applies one client command on the room goroutine.
func (r *Room) Dispatch(ctx context.Context, c *Client, msg ClientMessage) error {
	return r.Do(ctx, func(g *setgame.Game) {
		r.handleCommand(g, c, msg)
	})
}

// idle reports whether the room has had no connections for at least ttl.
func (r *Room) idle(ctx context.Context, ttl time.Duration) (bool, error) {
	var idle bool
	err := r.Do(ctx, func(*setgame.Game) {
		idle = len(r.clients) == 0 && time.Since(r.idleSince) >= ttl
	})
	return idle, err
}

// playerCount counts players known to the game, connected or not.
func (r *Room) playerCount(ctx context.Context) (int, error) {
	var n int
	err := r.Do(ctx, func(g *setgame.Game) {
		n = len(g.State().Players)
	})
	return n, err
}

func (r *Room) hasConnection(playerID string) bool {
	for _, c := range r.clients {
		if c.playerID == playerID {
			return true
		}
	}
	return false
}

// broadcast queues one frame on every client. Clients that cannot keep up
// are dropped; their handlers notice and detach.
func (r *Room) broadcast(msgType string, payload any) {
	frame, err := encodeMessage(msgType, payload)
	if err != nil {
		r.logger.Error("broadcast encode failed", zap.String("type", msgType), zap.Error(err))
		return
	}
	for id, c := range r.clients {
		if c.enqueue(frame) {
			continue
		}
		r.logger.Warn("dropping slow client", zap.String("conn", id), zap.String("player", c.playerID))
		c.close()
		delete(r.clients, id)
		r.metrics.DroppedClients.Inc()
	}
	if len(r.clients) == 0 {
		r.idleSince = time.Now()
	}
}

func (r *Room) send(c *Client, msgType string, payload any) {
	frame, err := encodeMessage(msgType, payload)
	if err != nil {
		r.logger.Error("send encode failed", zap.String("type", msgType), zap.Error(err))
		return
	}
	if !c.enqueue(frame) {
		r.logger.Warn("dropping slow client", zap.String("conn", c.id), zap.String("player", c.playerID))
		c.close()
		delete(r.clients, c.id)
		r.metrics.DroppedClients.Inc()
	}
}

// gameFinished records a completed game. The archive write runs off the
// room goroutine.
func (r *Room) gameFinished(sum setgame.GameSummary) {
	r.logger.Info("game finished",
		zap.String("winner", sum.Winner),
		zap.Int("team_a_score", sum.TeamAScore),
		zap.Int("team_b_score", sum.TeamBScore),
	)
	r.metrics.GamesFinished.WithLabelValues(sum.Winner).Inc()
	if r.archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := r.archive.RecordGameEnd(ctx, r.id, sum); err != nil {
			r.logger.Error("archive game failed", zap.Error(err))
		}
	}()
}
