package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"set-game-server/internal/setgame"
)

const (
	maxBodyBytes        = 1 << 16
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	detachTimeout       = 5 * time.Second
)

// RegisterRoutes builds the chi router. REST endpoints live under /api/v1;
// the websocket endpoint sits beside them and the metrics path is mounted
// only when enabled.
func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", s.createRoomHandler)
			r.Get("/health", s.healthHandler)
			r.Post("/cleanup", s.cleanupHandler)

			r.Route("/{roomID}", func(r chi.Router) {
				r.Post("/players", s.joinHandler)
				r.Post("/spectators", s.spectatorHandler)
				r.Get("/state", s.stateHandler)
				r.Get("/history", s.historyHandler)
			})
		})
		r.Get("/ws/{roomID}/{playerID}", s.websocketHandler)
	})

	if s.cfg.Metrics.Enabled {
		r.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}
	return r
}

// corsMiddleware allows the configured origins and answers preflight
// requests without reaching the router.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	allowAll := slices.Contains(s.cfg.Server.AllowedOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.cfg.Server.AllowedOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, ErrorMessage{Message: message, Code: code})
}

// ============================================================================
// ROOMS
// ============================================================================

// createRoomHandler allocates a new room with a generated id.
func (s *Server) createRoomHandler(w http.ResponseWriter, r *http.Request) {
	room := s.registry.Create()
	s.writeJSON(w, http.StatusOK, CreateRoomResponse{RoomID: room.ID()})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Message:   "Backend is running",
		RoomStats: s.registry.Stats(r.Context()),
	})
}

// cleanupHandler forces an immediate cleanup pass with no idle grace period.
func (s *Server) cleanupHandler(w http.ResponseWriter, r *http.Request) {
	n := s.registry.Cleanup(r.Context(), 0)
	s.writeJSON(w, http.StatusOK, CleanupResponse{
		Status:       "ok",
		Message:      fmt.Sprintf("Cleaned up %d empty rooms", n),
		CleanedCount: n,
		RoomStats:    s.registry.Stats(r.Context()),
	})
}

// decodeJoin reads and validates a join body. It writes the error response
// itself and reports false on failure.
func (s *Server) decodeJoin(w http.ResponseWriter, r *http.Request) (string, JoinRequest, bool) {
	roomID := chi.URLParam(r, "roomID")
	if err := ValidateRoomID(roomID); err != nil {
		s.writeError(w, http.StatusBadRequest, "ROOM_ID_INVALID", err.Error())
		return "", JoinRequest{}, false
	}

	var req JoinRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return "", JoinRequest{}, false
	}
	if err := ValidatePlayerID(req.ID); err != nil {
		s.writeError(w, http.StatusBadRequest, "PLAYER_ID_INVALID", err.Error())
		return "", JoinRequest{}, false
	}
	name, err := ValidateName(req.Name)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "NAME_INVALID", err.Error())
		return "", JoinRequest{}, false
	}
	req.Name = name
	return roomID, req, true
}

func (s *Server) joinHandler(w http.ResponseWriter, r *http.Request) {
	roomID, req, ok := s.decodeJoin(w, r)
	if !ok {
		return
	}
	state, err := s.registry.GetOrCreate(roomID).Join(r.Context(), req)
	if err != nil {
		s.writeJoinError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) spectatorHandler(w http.ResponseWriter, r *http.Request) {
	roomID, req, ok := s.decodeJoin(w, r)
	if !ok {
		return
	}
	state, err := s.registry.GetOrCreate(roomID).JoinSpectator(r.Context(), req)
	if err != nil {
		s.writeJoinError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// writeJoinError maps join failures to HTTP statuses. A full or locked room
// is 403 and a spectator conflict is 409.
func (s *Server) writeJoinError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrRoomClosed) {
		s.writeError(w, http.StatusServiceUnavailable, "ROOM_CLOSED", "Room is closing, try again")
		return
	}
	kind := setgame.KindOf(err)
	switch kind {
	case setgame.KindRoomFull, setgame.KindLobbyLocked:
		s.writeError(w, http.StatusForbidden, string(kind), ruleMessage(err))
	case setgame.KindSpectator:
		s.writeError(w, http.StatusConflict, string(kind), ruleMessage(err))
	case "":
		s.logger.Error("join failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "INTERNAL", "Join failed")
	default:
		s.writeError(w, http.StatusBadRequest, string(kind), ruleMessage(err))
	}
}

// stateHandler returns a snapshot of the room. It never creates a room.
func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	room, ok := s.registry.Get(chi.URLParam(r, "roomID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		return
	}
	state, err := room.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if err := ValidateRoomID(roomID); err != nil {
		s.writeError(w, http.StatusBadRequest, "ROOM_ID_INVALID", err.Error())
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "LIMIT_INVALID", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	games, err := s.archive.RecentGames(r.Context(), roomID, limit)
	if err != nil {
		s.logger.Error("history query failed", zap.String("room", roomID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "ARCHIVE_UNAVAILABLE", "History is unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, games)
}

// ============================================================================
// WEBSOCKET
// ============================================================================

// websocketHandler serves one connection to a room.
//
// Each connection has exactly two goroutines. This one owns every read and
// turns frames into room commands. The writePump goroutine owns every write
// and drains the client's send queue, so the room never blocks on a socket.
// Whichever side stops first cancels ctx, which ends the other.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	playerID := chi.URLParam(r, "playerID")
	if err := ValidateRoomID(roomID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := ValidatePlayerID(playerID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The server's request timeouts must not apply to the hijacked connection.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.Server.AllowedOrigins,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	connectionID := uuid.New().String()
	logger := s.logger.With(zap.String("room", roomID), zap.String("player", playerID), zap.String("conn", connectionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Joining happens over HTTP. A socket only attaches to the room, and an
	// id the room does not know attaches as an observer.
	room := s.registry.GetOrCreate(roomID)
	client := newClient(connectionID, playerID, socket, s.cfg.Rooms.SendQueue)

	// Writer: the only goroutine that writes to the socket.
	go func() {
		if err := client.writePump(ctx, s.cfg.Server.WriteTimeout); err != nil && ctx.Err() == nil {
			logger.Info("write failed", zap.Error(err))
		}
		cancel()
	}()

	// Cleanup can stop the room between GetOrCreate and Attach. Attach then
	// returns ErrRoomClosed and the client is told to try again, which lands
	// in a fresh room.
	if err := room.Attach(ctx, client); err != nil {
		logger.Warn("attach failed", zap.Error(err))
		socket.Close(websocket.StatusTryAgainLater, "room closed")
		return
	}
	s.metrics.Connections.Inc()
	logger.Info("connection opened")

	// Detach uses its own context because ctx is already cancelled by the
	// time this runs. The room decides whether the player leaves or is only
	// marked disconnected.
	defer func() {
		s.metrics.Connections.Dec()
		s.limiter.RemoveConnection(connectionID)
		client.close()

		dctx, dcancel := context.WithTimeout(context.Background(), detachTimeout)
		defer dcancel()
		if err := room.Detach(dctx, client); err != nil && !errors.Is(err, ErrRoomClosed) {
			logger.Warn("detach failed", zap.Error(err))
		}
		logger.Info("connection closed")
	}()

	// Reader: runs until the peer goes away or the writer gives up.
	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			logger.Debug("read ended", zap.Error(err))
			return
		}
		if msgType != websocket.MessageText {
			logger.Debug("non-text frame ignored")
			continue
		}

		// Rate limiting is per connection, not per player.
		if !s.limiter.Allow(connectionID) {
			s.sendError(client, "RATE_LIMITED", "Too many messages, slow down")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(client, "INVALID_JSON", "Invalid JSON")
			continue
		}
		if err := ValidateMessageType(msg.Type); err != nil {
			s.sendError(client, "INVALID_MESSAGE_TYPE", err.Error())
			continue
		}

		// Heartbeats never reach the room actor.
		if msg.Type == "ping" {
			s.sendMessage(client, "pong", struct{}{})
			continue
		}

		// Dispatch only fails once the room is stopped or ctx is done. Rule
		// errors are broadcast by the room itself.
		if err := room.Dispatch(ctx, client, msg); err != nil {
			logger.Info("dispatch stopped", zap.Error(err))
			return
		}
	}
}

// sendMessage queues a frame for c alone, bypassing the room.
func (s *Server) sendMessage(c *Client, msgType string, payload any) {
	frame, err := encodeMessage(msgType, payload)
	if err != nil {
		s.logger.Error("encode failed", zap.String("type", msgType), zap.Error(err))
		return
	}
	if !c.enqueue(frame) {
		s.logger.Debug("send queue full", zap.String("conn", c.id))
	}
}

func (s *Server) sendError(c *Client, code, message string) {
	s.sendMessage(c, "error", ErrorMessage{Message: message, Code: code})
}
