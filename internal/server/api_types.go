package server

import (
	"encoding/json"
	"time"

	"set-game-server/internal/game"
	"set-game-server/internal/setgame"
)

// ============================================================================
// HTTP
// ============================================================================

type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
}

type JoinRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type RoomStats struct {
	TotalRooms       int `json:"total_rooms"`
	RoomsWithPlayers int `json:"rooms_with_players"`
	EmptyRooms       int `json:"empty_rooms"`
	TotalPlayers     int `json:"total_players"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	RoomStats RoomStats `json:"room_stats"`
}

type CleanupResponse struct {
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	CleanedCount int       `json:"cleaned_count"`
	RoomStats    RoomStats `json:"room_stats"`
}

type FinishedGame struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	Winner     string    `json:"winner"`
	TeamAScore int       `json:"team_a_score"`
	TeamBScore int       `json:"team_b_score"`
	TeamASets  int       `json:"team_a_sets"`
	TeamBSets  int       `json:"team_b_sets"`
	FinishedAt time.Time `json:"finished_at"`
}

// ============================================================================
// LOBBY COMMANDS
// ============================================================================

type SelectTeamRequest struct {
	PlayerID string       `json:"player_id"`
	Team     setgame.Team `json:"team"`
}

type LeaveSeatRequest struct {
	PlayerID string `json:"player_id"`
}

type AddAIPlayerRequest struct {
	PlayerID string       `json:"player_id"`
	Name     string       `json:"name"`
	Avatar   string       `json:"avatar"`
	Team     setgame.Team `json:"team"`
}

type ApproveSpectatorRequest struct {
	AdminID     string `json:"admin_id"`
	SpectatorID string `json:"spectator_id"`
	Approved    bool   `json:"approved"`
}

type GameStartedNotification struct {
	Message string            `json:"message"`
	State   setgame.RoomState `json:"state"`
}

// ============================================================================
// DEALING
// ============================================================================

type ShuffleDealRequest struct {
	DealerID string `json:"dealer_id"`
}

type StartNewRoundRequest struct {
	PlayerID string `json:"player_id"`
}

type ShuffleDealError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type NewGameNotification struct {
	setgame.NewGameResult
	State setgame.RoomState `json:"state"`
}

type NewRoundNotification struct {
	setgame.NewRoundResult
	State setgame.RoomState `json:"state"`
}

// ============================================================================
// ASK / PASS
// ============================================================================

type AskRequest struct {
	AskerID  string       `json:"asker_id"`
	TargetID string       `json:"target_id"`
	Suit     game.Suit    `json:"suit"`
	SetType  game.SetType `json:"set_type"`
	Ranks    []game.Rank  `json:"ranks"`
}

type AskStarted struct {
	AskerID  string            `json:"asker_id"`
	TargetID string            `json:"target_id"`
	Suit     game.Suit         `json:"suit"`
	SetType  game.SetType      `json:"set_type"`
	Ranks    []game.Rank       `json:"ranks"`
	State    setgame.RoomState `json:"state"`
}

type AskPending struct {
	setgame.AskResult
	State setgame.RoomState `json:"state"`
}

type ConfirmPassRequest struct {
	AskerID  string      `json:"asker_id"`
	TargetID string      `json:"target_id"`
	Cards    []game.Card `json:"cards"`
	Suit     game.Suit   `json:"suit,omitempty"`
	Ranks    []game.Rank `json:"ranks,omitempty"`
}

type AskResultNotification struct {
	AskerID     string            `json:"asker_id"`
	TargetID    string            `json:"target_id"`
	Cards       []game.Card       `json:"cards"`
	Success     bool              `json:"success"`
	Reason      string            `json:"reason,omitempty"`
	Suit        game.Suit         `json:"suit,omitempty"`
	Ranks       []game.Rank       `json:"ranks"`
	Transferred []game.Card       `json:"transferred"`
	NextTurn    string            `json:"next_turn,omitempty"`
	State       setgame.RoomState `json:"state"`
}

type PassCardsRequest struct {
	FromPlayerID string      `json:"from_player_id"`
	ToPlayerID   string      `json:"to_player_id"`
	Cards        []game.Card `json:"cards"`
}

type CardsPassed struct {
	setgame.PassResult
	State setgame.RoomState `json:"state"`
}

// ============================================================================
// LAYDOWN
// ============================================================================

type LaydownRequest struct {
	WhoID         string          `json:"who_id"`
	Suit          game.Suit       `json:"suit"`
	SetType       game.SetType    `json:"set_type"`
	Collaborators json.RawMessage `json:"collaborators"`
}

type LaydownStarted struct {
	WhoID         string                `json:"who_id"`
	Suit          game.Suit             `json:"suit"`
	SetType       game.SetType          `json:"set_type"`
	Collaborators setgame.Collaborators `json:"collaborators"`
	State         setgame.RoomState     `json:"state"`
}

type LaydownNotification struct {
	setgame.LaydownResult
	State setgame.RoomState `json:"state"`
}

type HandoffRequest struct {
	WhoID string `json:"who_id"`
	ToID  string `json:"to_id"`
}

type HandoffNotification struct {
	setgame.HandoffResult
	FromID string            `json:"from_id"`
	State  setgame.RoomState `json:"state"`
}

// ============================================================================
// VOTES
// ============================================================================

type VoteRequestRequest struct {
	RequesterID string `json:"requester_id"`
}

type VoteCastRequest struct {
	VoterID string `json:"voter_id"`
	Vote    bool   `json:"vote"`
}

type VoteNotification struct {
	setgame.VoteResult
	State setgame.RoomState `json:"state"`
}

// ============================================================================
// PRESENCE & ERRORS
// ============================================================================

type PresenceNotification struct {
	PlayerID   string            `json:"player_id"`
	PlayerName string            `json:"player_name"`
	State      setgame.RoomState `json:"state"`
}

// CommandError is broadcast as <command>_error when the game rejects a command.
type CommandError struct {
	Error string            `json:"error"`
	Kind  string            `json:"kind,omitempty"`
	State setgame.RoomState `json:"state"`
}

type LaydownError struct {
	CommandError
	WhoID   string       `json:"who_id"`
	Suit    game.Suit    `json:"suit"`
	SetType game.SetType `json:"set_type"`
}

type PassCardsError struct {
	CommandError
	FromPlayerID string `json:"from_player_id"`
	ToPlayerID   string `json:"to_player_id"`
}
