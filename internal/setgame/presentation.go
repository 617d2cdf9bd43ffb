package setgame

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"set-game-server/internal/game"
)

// Seats maps seat index to player id; "" is an empty seat. On the wire it is
// an object keyed "0".."5" with null for empty seats.
type Seats [NumSeats]string

func (s Seats) MarshalJSON() ([]byte, error) {
	m := make(map[string]*string, NumSeats)
	for i, id := range s {
		if id == "" {
			m[strconv.Itoa(i)] = nil
			continue
		}
		m[strconv.Itoa(i)] = &id
	}
	return json.Marshal(m)
}

func (s *Seats) UnmarshalJSON(data []byte) error {
	var m map[string]*string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*s = Seats{}
	for k, id := range m {
		seat, err := strconv.Atoi(k)
		if err != nil || seat < 0 || seat >= NumSeats {
			return fmt.Errorf("invalid seat %q", k)
		}
		if id != nil {
			s[seat] = *id
		}
	}
	return nil
}

// SeatOf returns the seat of id, or -1.
func (s Seats) SeatOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.Index(s[:], id)
}

func (s Seats) Occupied() int {
	n := 0
	for _, id := range s {
		if id != "" {
			n++
		}
	}
	return n
}

// Snapshot returns a deep copy safe to hand to other goroutines.
func (g *Game) Snapshot() RoomState {
	return g.state.Clone()
}

func (s RoomState) Clone() RoomState {
	out := s
	out.Players = make(map[string]*Player, len(s.Players))
	for id, p := range s.Players {
		cp := *p
		if p.Seat != nil {
			seat := *p.Seat
			cp.Seat = &seat
		}
		cp.Hand = slices.Clone(p.Hand)
		if cp.Hand == nil {
			cp.Hand = []game.Card{}
		}
		out.Players[id] = &cp
	}
	out.TeamScores = maps.Clone(s.TeamScores)
	out.TableSets = make([]TableSet, len(s.TableSets))
	for i, ts := range s.TableSets {
		ts.Cards = slices.Clone(ts.Cards)
		out.TableSets[i] = ts
	}
	out.AbortVotes = maps.Clone(s.AbortVotes)
	out.BackToLobbyVotes = maps.Clone(s.BackToLobbyVotes)
	out.SpectatorRequests = maps.Clone(s.SpectatorRequests)
	return out
}

// DecodeRoomState parses a snapshot, fills defaults missing from older
// versions and rejects states that break the seating or card invariants.
func DecodeRoomState(data []byte) (RoomState, error) {
	var s RoomState
	if err := json.Unmarshal(data, &s); err != nil {
		return RoomState{}, fmt.Errorf("decode room state: %w", err)
	}
	if s.Version > stateVersion {
		return RoomState{}, fmt.Errorf("decode room state: unsupported version %d", s.Version)
	}
	def := newRoomState(s.RoomID)
	if s.Players == nil {
		s.Players = def.Players
	}
	if s.TeamScores == nil {
		s.TeamScores = def.TeamScores
	}
	if s.TableSets == nil {
		s.TableSets = def.TableSets
	}
	if s.Phase == "" {
		s.Phase = def.Phase
	}
	if s.AbortVotes == nil {
		s.AbortVotes = def.AbortVotes
	}
	if s.BackToLobbyVotes == nil {
		s.BackToLobbyVotes = def.BackToLobbyVotes
	}
	if s.SpectatorRequests == nil {
		s.SpectatorRequests = def.SpectatorRequests
	}
	s.Version = stateVersion
	if err := s.Validate(); err != nil {
		return RoomState{}, err
	}
	return s, nil
}

// Validate checks the structural invariants of the state. Card conservation
// is only checked while a game is being played; aborted or reset games have
// cleared hands by design.
func (s *RoomState) Validate() error {
	switch s.Phase {
	case PhaseLobby, PhaseReady, PhasePlaying, PhaseEnded:
	default:
		return fmt.Errorf("invalid phase %q", s.Phase)
	}

	for seat, id := range s.Seats {
		if id == "" {
			continue
		}
		p, ok := s.Players[id]
		if !ok {
			return fmt.Errorf("seat %d held by unknown player %q", seat, id)
		}
		if p.Seat == nil || *p.Seat != seat {
			return fmt.Errorf("seat %d and player %q disagree", seat, id)
		}
		if p.Team != TeamForSeat(seat) {
			return fmt.Errorf("player %q on seat %d has team %q", id, seat, p.Team)
		}
	}
	for id, p := range s.Players {
		if p.ID != id {
			return fmt.Errorf("player key %q holds id %q", id, p.ID)
		}
		if p.Seat != nil && (*p.Seat < 0 || *p.Seat >= NumSeats || s.Seats[*p.Seat] != id) {
			return fmt.Errorf("player %q claims seat %d", id, *p.Seat)
		}
	}

	if len(s.TableSets) > game.SetCount {
		return fmt.Errorf("%d table sets", len(s.TableSets))
	}
	seen := make(map[string]bool)
	for _, ts := range s.TableSets {
		key := string(ts.Suit) + "/" + string(ts.SetType)
		if seen[key] {
			return fmt.Errorf("duplicate table set %s", key)
		}
		seen[key] = true
	}

	if s.TurnPlayer != "" {
		p, ok := s.Players[s.TurnPlayer]
		if !ok || p.IsSpectator || p.Seat == nil {
			return fmt.Errorf("turn player %q is not seated", s.TurnPlayer)
		}
	}

	if s.Phase == PhasePlaying {
		return s.checkCardConservation()
	}
	return nil
}

func (s *RoomState) checkCardConservation() error {
	count := make(map[game.Card]int, game.DeckSize)
	for _, p := range s.Players {
		for _, c := range p.Hand {
			count[c]++
		}
	}
	for _, ts := range s.TableSets {
		for _, c := range ts.Cards {
			count[c]++
		}
	}
	if s.DeckCount != 0 {
		return fmt.Errorf("%d cards left undealt", s.DeckCount)
	}
	for _, c := range game.NewDeck().Cards {
		if count[c] != 1 {
			return fmt.Errorf("card %s appears %d times", c, count[c])
		}
		delete(count, c)
	}
	for c := range count {
		return fmt.Errorf("unknown card %s", c)
	}
	return nil
}
