package setgame

import (
	"errors"
	"fmt"
)

// ErrorKind names a rule violation. Callers branch on the kind to decide how
// to surface the failure; the game state is never mutated when one is returned.
type ErrorKind string

const (
	KindNotYourTurn             ErrorKind = "NOT_YOUR_TURN"
	KindUnknownPlayer           ErrorKind = "UNKNOWN_PLAYER"
	KindNotOpponent             ErrorKind = "NOT_OPPONENT"
	KindMustHoldQualifyingCard  ErrorKind = "MUST_HOLD_QUALIFYING_CARD"
	KindCollaboratorNotTeammate ErrorKind = "COLLABORATOR_NOT_TEAMMATE"
	KindCollaboratorEmptyHand   ErrorKind = "COLLABORATOR_EMPTY_HAND"
	KindCardsNotHeld            ErrorKind = "CARDS_NOT_HELD"
	KindSetAlreadyCaptured      ErrorKind = "SET_ALREADY_CAPTURED"
	KindWrongPhase              ErrorKind = "WRONG_PHASE"
	KindInvalidTeam             ErrorKind = "INVALID_TEAM"
	KindInvalidCard             ErrorKind = "INVALID_CARD"
	KindRoomFull                ErrorKind = "ROOM_FULL"
	KindLobbyLocked             ErrorKind = "LOBBY_LOCKED"
	KindNotAdmin                ErrorKind = "NOT_ADMIN"
	KindSeatUnavailable         ErrorKind = "SEAT_UNAVAILABLE"
	KindSpectator               ErrorKind = "SPECTATOR"
)

type RuleError struct {
	Kind    ErrorKind
	Message string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any RuleError of the same kind, so errors.Is(err, ErrNotYourTurn)
// holds regardless of the message.
func (e *RuleError) Is(target error) bool {
	var t *RuleError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func ruleErr(kind ErrorKind, format string, args ...any) error {
	return &RuleError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrNotYourTurn             = &RuleError{KindNotYourTurn, "Not your turn"}
	ErrUnknownPlayer           = &RuleError{KindUnknownPlayer, "Unknown player"}
	ErrNotOpponent             = &RuleError{KindNotOpponent, "Must target an opponent"}
	ErrMustHoldQualifyingCard  = &RuleError{KindMustHoldQualifyingCard, "You must hold at least one card from that set"}
	ErrCollaboratorNotTeammate = &RuleError{KindCollaboratorNotTeammate, "Collaborators must be teammates"}
	ErrCollaboratorEmptyHand   = &RuleError{KindCollaboratorEmptyHand, "Collaborator has no cards"}
	ErrCardsNotHeld            = &RuleError{KindCardsNotHeld, "Player doesn't have all the specified cards"}
	ErrSetAlreadyCaptured      = &RuleError{KindSetAlreadyCaptured, "That set is already on the table"}
	ErrWrongPhase              = &RuleError{KindWrongPhase, "Not allowed in the current phase"}
	ErrInvalidTeam             = &RuleError{KindInvalidTeam, "Team must be A or B"}
	ErrInvalidCard             = &RuleError{KindInvalidCard, "Unknown suit, set type or rank"}
	ErrRoomFull                = &RuleError{KindRoomFull, "Room is full (6/6 players)"}
	ErrLobbyLocked             = &RuleError{KindLobbyLocked, "Lobby is locked - game in progress"}
	ErrNotAdmin                = &RuleError{KindNotAdmin, "Only the room admin can do that"}
	ErrSeatUnavailable         = &RuleError{KindSeatUnavailable, "No seat available for that team"}
	ErrSpectator               = &RuleError{KindSpectator, "Spectators cannot take part"}
)

// KindOf returns the kind of a RuleError anywhere in err's chain, or "".
func KindOf(err error) ErrorKind {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
