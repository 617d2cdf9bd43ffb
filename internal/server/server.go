package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"set-game-server/internal/config"
	"set-game-server/internal/setgame"
)

// Server owns the room registry and the per-connection rate limiter. All
// game state lives inside room actors.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *Registry
	limiter  *RateLimiter
	metrics  *Metrics
	archive  *Archive
}

// NewServer wires the room registry and returns it together with the
// *http.Server that serves it. Background work starts with Run.
func NewServer(cfg *config.Config, logger *zap.Logger, metrics *Metrics, archive *Archive, opts ...setgame.Option) (*Server, *http.Server) {
	opts = append([]setgame.Option{setgame.WithMaxPlayers(cfg.Rooms.MaxPlayers)}, opts...)

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: NewRegistry(logger, metrics, archive, opts...),
		limiter:  NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window),
		metrics:  metrics,
		archive:  archive,
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  cfg.Server.IdleTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s, httpServer
}

// Registry exposes the room registry, mainly for tests.
func (s *Server) Registry() *Registry { return s.registry }

// Run drives room cleanup and rate limiter housekeeping until ctx is done.
//
// Cleanup can stop an idle room at the same moment a new socket looks it up.
// Room.Attach then fails with ErrRoomClosed and the handler closes the socket
// with StatusTryAgainLater; the retry creates a fresh room under the same id.
func (s *Server) Run(ctx context.Context) {
	// Idle rooms
	go s.registry.Run(ctx, s.cfg.Rooms.CleanupInterval, s.cfg.Rooms.IdleTTL)

	ticker := time.NewTicker(s.cfg.Rooms.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Forget windows of connections that went quiet.
			s.limiter.Cleanup()
		}
	}
}

// Shutdown closes every room, which drops all websocket clients.
//
// It must run before http.Server.Shutdown: hijacked websocket connections are
// not tracked by the HTTP server, and their handlers only return once the
// room has closed their clients. Rooms are closed in the background so a
// stuck actor cannot hold shutdown past ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.registry.Close()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("all rooms closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
