package server

import (
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"set-game-server/internal/game"
	"set-game-server/internal/setgame"
)

// commandFunc applies one command. A returned error that carries a rule
// kind becomes a <command>_error broadcast; anything else goes back to the
// sender alone.
type commandFunc func(r *Room, g *setgame.Game, c *Client, payload json.RawMessage) error

var commandHandlers = map[setgame.CommandType]commandFunc{
	setgame.CmdSelectTeam:          (*Room).selectTeam,
	setgame.CmdLeaveSeat:           (*Room).leaveSeat,
	setgame.CmdAddAIPlayer:         (*Room).addAIPlayer,
	setgame.CmdApproveSpectator:    (*Room).approveSpectator,
	setgame.CmdStart:               (*Room).start,
	setgame.CmdShuffleDeal:         (*Room).shuffleDeal,
	setgame.CmdShuffleDealNewGame:  (*Room).shuffleDealNewGame,
	setgame.CmdStartNewRound:       (*Room).startNewRound,
	setgame.CmdAsk:                 (*Room).ask,
	setgame.CmdConfirmPass:         (*Room).confirmPass,
	setgame.CmdLaydown:             (*Room).laydown,
	setgame.CmdPassCards:           (*Room).passCards,
	setgame.CmdHandoffAfterLaydown: (*Room).handoff,
	setgame.CmdRequestAbort:        (*Room).requestAbort,
	setgame.CmdVoteAbort:           (*Room).voteAbort,
	setgame.CmdRequestBackToLobby:  (*Room).requestBackToLobby,
	setgame.CmdVoteBackToLobby:     (*Room).voteBackToLobby,
	setgame.CmdBubbleMessage:       (*Room).bubbleMessage,
	setgame.CmdClearBubbleMessages: (*Room).clearBubbleMessages,
	setgame.CmdSync:                (*Room).sync,
}

func (r *Room) handleCommand(g *setgame.Game, c *Client, msg ClientMessage) {
	handler, ok := commandHandlers[setgame.CommandType(msg.Type)]
	if !ok {
		r.send(c, "error", ErrorMessage{Message: "Unknown message type: " + msg.Type, Code: "INVALID_MESSAGE_TYPE"})
		return
	}

	start := time.Now()
	r.metrics.Commands.WithLabelValues(msg.Type).Inc()
	r.logger.Debug("command", zap.String("type", msg.Type), zap.String("player", c.playerID))

	err := handler(r, g, c, msg.Payload)
	r.metrics.CommandLatency.Observe(time.Since(start).Seconds())
	if err == nil {
		return
	}

	kind := setgame.KindOf(err)
	if kind == "" {
		r.logger.Debug("bad command", zap.String("type", msg.Type), zap.Error(err))
		r.send(c, "error", ErrorMessage{Message: err.Error(), Code: "INVALID_PAYLOAD"})
		return
	}
	r.rejected(msg.Type, err)
	r.broadcast(msg.Type+"_error", CommandError{
		Error: ruleMessage(err),
		Kind:  string(kind),
		State: g.Snapshot(),
	})
}

// rejected logs and counts a rule violation.
func (r *Room) rejected(cmd string, err error) {
	kind := setgame.KindOf(err)
	r.logger.Warn("command rejected", zap.String("type", cmd), zap.String("kind", string(kind)), zap.Error(err))
	r.metrics.CommandErrors.WithLabelValues(string(kind)).Inc()
}

func ruleMessage(err error) string {
	var re *setgame.RuleError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return err.Error()
}

func commandError(g *setgame.Game, err error) CommandError {
	return CommandError{Error: ruleMessage(err), Kind: string(setgame.KindOf(err)), State: g.Snapshot()}
}

// ============================================================================
// LOBBY
// ============================================================================

func (r *Room) selectTeam(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req SelectTeamRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	if _, err := g.AssignSeat(firstNonEmpty(req.PlayerID, c.playerID), req.Team); err != nil {
		return err
	}
	r.broadcast("state", g.Snapshot())
	return nil
}

func (r *Room) leaveSeat(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req LeaveSeatRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	if _, err := g.RemoveFromSeat(firstNonEmpty(req.PlayerID, c.playerID)); err != nil {
		return err
	}
	r.broadcast("state", g.Snapshot())
	return nil
}

func (r *Room) addAIPlayer(g *setgame.Game, _ *Client, payload json.RawMessage) error {
	var req AddAIPlayerRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	if err := ValidatePlayerID(req.PlayerID); err != nil {
		return err
	}
	seat, err := g.AddAIPlayer(req.PlayerID, req.Name, req.Avatar, req.Team)
	if err != nil {
		return err
	}
	r.logger.Info("ai player added", zap.String("player", req.PlayerID), zap.Int("seat", seat))
	r.broadcast("state", g.Snapshot())
	return nil
}

func (r *Room) approveSpectator(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req ApproveSpectatorRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	if err := g.ApproveSpectator(firstNonEmpty(req.AdminID, c.playerID), req.SpectatorID, req.Approved); err != nil {
		return err
	}
	r.broadcast("state", g.Snapshot())
	return nil
}

func (r *Room) start(g *setgame.Game, _ *Client, _ json.RawMessage) error {
	if err := g.Start(); err != nil {
		return err
	}
	state := g.Snapshot()
	r.broadcast("state", state)
	r.broadcast("game_started", GameStartedNotification{Message: "Game has started!", State: state})
	return nil
}

// ============================================================================
// DEALING
// ============================================================================

func (r *Room) shuffleDeal(g *setgame.Game, c *Client, payload json.RawMessage) error {
	switch g.Phase() {
	case setgame.PhaseReady, setgame.PhaseEnded, setgame.PhaseLobby:
		return r.shuffleDealNewGame(g, c, payload)
	}
	r.broadcast("shuffle_deal_error", ShuffleDealError{
		Reason:  "game_in_progress",
		Message: "Cannot shuffle and deal during active game. Use abort game first.",
	})
	return nil
}

func (r *Room) shuffleDealNewGame(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req ShuffleDealRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	res, err := g.ShuffleDealNewGame(firstNonEmpty(req.DealerID, c.playerID))
	if err != nil {
		return err
	}
	if res.Success {
		r.logger.Info("new game dealt", zap.String("dealer", res.DealerID), zap.String("turn", res.TurnID))
	}
	r.broadcast("new_game_started", NewGameNotification{NewGameResult: res, State: g.Snapshot()})
	return nil
}

func (r *Room) startNewRound(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req StartNewRoundRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	res, err := g.StartNewRound(firstNonEmpty(req.PlayerID, c.playerID))
	if err != nil {
		return err
	}
	r.broadcast("new_round_started", NewRoundNotification{NewRoundResult: res, State: g.Snapshot()})
	return nil
}

// ============================================================================
// ASK / PASS
// ============================================================================

func (r *Room) ask(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req AskRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	req.AskerID = firstNonEmpty(req.AskerID, c.playerID)
	if req.Ranks == nil {
		req.Ranks = []game.Rank{}
	}

	r.broadcast("ask_started", AskStarted{
		AskerID:  req.AskerID,
		TargetID: req.TargetID,
		Suit:     req.Suit,
		SetType:  req.SetType,
		Ranks:    req.Ranks,
		State:    g.Snapshot(),
	})

	res, err := g.PrepareAsk(req.AskerID, req.TargetID, req.Suit, req.SetType, req.Ranks)
	if err != nil {
		return err
	}
	if res.Reason == "target_empty" {
		r.broadcast("ask_result", AskResultNotification{
			AskerID:     req.AskerID,
			TargetID:    req.TargetID,
			Cards:       []game.Card{},
			Success:     false,
			Reason:      res.Reason,
			Suit:        req.Suit,
			Ranks:       req.Ranks,
			Transferred: []game.Card{},
			State:       g.Snapshot(),
		})
		return nil
	}
	r.broadcast("ask_pending", AskPending{AskResult: res, State: g.Snapshot()})
	return nil
}

func (r *Room) confirmPass(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req ConfirmPassRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	req.AskerID = firstNonEmpty(req.AskerID, c.playerID)
	if req.Cards == nil {
		req.Cards = []game.Card{}
	}

	res, err := g.ConfirmPass(req.AskerID, req.TargetID, req.Cards)
	if err != nil {
		return err
	}
	transferred := res.Transferred
	if transferred == nil {
		transferred = []game.Card{}
	}
	r.broadcast("ask_result", AskResultNotification{
		AskerID:     req.AskerID,
		TargetID:    req.TargetID,
		Cards:       req.Cards,
		Success:     res.Success,
		Reason:      res.Reason,
		Suit:        req.Suit,
		Ranks:       req.Ranks,
		Transferred: transferred,
		NextTurn:    res.NextTurn,
		State:       g.Snapshot(),
	})
	return nil
}

func (r *Room) passCards(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req PassCardsRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	req.FromPlayerID = firstNonEmpty(req.FromPlayerID, c.playerID)

	res, err := g.PassCards(req.FromPlayerID, req.ToPlayerID, req.Cards)
	if err != nil {
		r.rejected(string(setgame.CmdPassCards), err)
		r.broadcast("pass_cards_error", PassCardsError{
			CommandError: commandError(g, err),
			FromPlayerID: req.FromPlayerID,
			ToPlayerID:   req.ToPlayerID,
		})
		return nil
	}
	state := g.Snapshot()
	r.broadcast("state", state)
	r.broadcast("cards_passed", CardsPassed{PassResult: res, State: state})
	if res.GameEnd.GameEnded {
		r.gameFinished(res.GameEnd)
	}
	return nil
}

// ============================================================================
// LAYDOWN
// ============================================================================

func (r *Room) laydown(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req LaydownRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	req.WhoID = firstNonEmpty(req.WhoID, c.playerID)
	collaborators, err := normalizeCollaborators(req.Collaborators)
	if err != nil {
		return err
	}

	r.broadcast("laydown_started", LaydownStarted{
		WhoID:         req.WhoID,
		Suit:          req.Suit,
		SetType:       req.SetType,
		Collaborators: collaborators,
		State:         g.Snapshot(),
	})

	res, err := g.Laydown(req.WhoID, req.Suit, req.SetType, collaborators)
	if err != nil {
		r.rejected(string(setgame.CmdLaydown), err)
		r.broadcast("laydown_error", LaydownError{
			CommandError: commandError(g, err),
			WhoID:        req.WhoID,
			Suit:         req.Suit,
			SetType:      req.SetType,
		})
		return nil
	}

	outcome := "failure"
	if res.Success {
		outcome = "success"
	}
	r.metrics.Laydowns.WithLabelValues(outcome).Inc()
	r.logger.Info("laydown",
		zap.String("player", req.WhoID),
		zap.String("suit", string(req.Suit)),
		zap.String("set_type", string(req.SetType)),
		zap.String("outcome", outcome),
		zap.String("owner", string(res.OwnerTeam)),
	)

	r.broadcast("laydown_result", LaydownNotification{LaydownResult: res, State: g.Snapshot()})
	if res.GameEnd.GameEnded {
		r.gameFinished(res.GameEnd)
	}
	return nil
}

func (r *Room) handoff(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req HandoffRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	req.WhoID = firstNonEmpty(req.WhoID, c.playerID)

	res := g.HandoffAfterLaydown(req.WhoID, req.ToID)
	state := g.Snapshot()
	r.broadcast("state", state)
	r.broadcast("handoff_result", HandoffNotification{HandoffResult: res, FromID: req.WhoID, State: state})
	return nil
}

// ============================================================================
// VOTES
// ============================================================================

func (r *Room) requestAbort(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req VoteRequestRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	res, err := g.RequestAbort(firstNonEmpty(req.RequesterID, c.playerID))
	if err != nil {
		return err
	}
	r.broadcast("abort_requested", VoteNotification{VoteResult: res, State: g.Snapshot()})
	return nil
}

func (r *Room) voteAbort(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req VoteCastRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	res, err := g.VoteAbort(firstNonEmpty(req.VoterID, c.playerID), req.Vote)
	if err != nil {
		return err
	}
	note := VoteNotification{VoteResult: res, State: g.Snapshot()}
	switch {
	case res.Success:
		r.logger.Info("game aborted by vote")
		r.broadcast("game_aborted", note)
	case res.VotingFailed:
		r.broadcast("voting_failed", note)
	default:
		r.broadcast("abort_vote_cast", note)
	}
	return nil
}

func (r *Room) requestBackToLobby(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req VoteRequestRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	res, err := g.RequestBackToLobby(firstNonEmpty(req.RequesterID, c.playerID))
	if err != nil {
		return err
	}
	note := VoteNotification{VoteResult: res, State: g.Snapshot()}
	if res.Success {
		r.broadcast("back_to_lobby_success", note)
		return nil
	}
	r.broadcast("back_to_lobby_requested", note)
	return nil
}

func (r *Room) voteBackToLobby(g *setgame.Game, c *Client, payload json.RawMessage) error {
	var req VoteCastRequest
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	res, err := g.VoteBackToLobby(firstNonEmpty(req.VoterID, c.playerID), req.Vote)
	if err != nil {
		return err
	}
	note := VoteNotification{VoteResult: res, State: g.Snapshot()}
	switch {
	case res.Success:
		r.logger.Info("room returned to lobby by vote")
		r.broadcast("back_to_lobby_success", note)
	case res.Reason == setgame.VoteFailed:
		r.broadcast("back_to_lobby_failed", note)
	default:
		r.broadcast("back_to_lobby_vote_cast", note)
	}
	return nil
}

// ============================================================================
// RELAYED
// ============================================================================

// bubbleMessage relays the payload as-is, filling in the sender.
func (r *Room) bubbleMessage(_ *setgame.Game, c *Client, payload json.RawMessage) error {
	fields := map[string]any{}
	if err := decodePayload(payload, &fields); err != nil {
		return err
	}
	delete(fields, "type")
	if id, _ := fields["player_id"].(string); id == "" {
		fields["player_id"] = c.playerID
	}
	if _, ok := fields["variant"]; !ok {
		fields["variant"] = nil
	}
	r.broadcast("bubble_message", fields)
	return nil
}

func (r *Room) clearBubbleMessages(_ *setgame.Game, c *Client, payload json.RawMessage) error {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return err
	}
	r.broadcast("clear_bubble_messages", map[string]string{"player_id": firstNonEmpty(req.PlayerID, c.playerID)})
	return nil
}

func (r *Room) sync(g *setgame.Game, _ *Client, _ json.RawMessage) error {
	r.broadcast("state", g.Snapshot())
	return nil
}
