package setgame

import (
	"sort"

	"set-game-server/internal/game"
)

// Join adds a player to the room, or refreshes name and avatar when the id is
// already known. The first non-spectator to join becomes the room admin.
func (g *Game) Join(id, name, avatar string) (p *Player, reconnected bool, err error) {
	if existing, ok := g.state.Players[id]; ok {
		existing.Name = name
		existing.Avatar = avatar
		existing.Connected = true
		return existing, true, nil
	}
	if g.state.LobbyLocked {
		return nil, false, ErrLobbyLocked
	}
	if len(g.state.participants()) >= g.maxPlayers {
		return nil, false, ErrRoomFull
	}

	p = &Player{
		ID:        id,
		Name:      name,
		Avatar:    avatar,
		Hand:      []game.Card{},
		Connected: true,
	}
	g.state.Players[id] = p
	if g.state.AdminPlayerID == "" {
		g.state.AdminPlayerID = id
	}
	return p, false, nil
}

// JoinSpectator registers a watcher awaiting admin approval. Spectators may
// join a locked lobby.
func (g *Game) JoinSpectator(id, name, avatar string) (*Player, error) {
	if existing, ok := g.state.Players[id]; ok {
		if !existing.IsSpectator {
			return nil, ruleErr(KindSpectator, "Player %q is already seated in the room", id)
		}
		existing.Name = name
		existing.Avatar = avatar
		existing.Connected = true
		return existing, nil
	}
	p := &Player{
		ID:               id,
		Name:             name,
		Avatar:           avatar,
		Hand:             []game.Card{},
		Connected:        true,
		IsSpectator:      true,
		SpectatorPending: true,
	}
	g.state.Players[id] = p
	g.state.SpectatorRequests[id] = name
	return p, nil
}

// ApproveSpectator resolves a pending spectator request. Rejected spectators
// are removed from the room.
func (g *Game) ApproveSpectator(adminID, spectatorID string, approved bool) error {
	if adminID == "" || adminID != g.state.AdminPlayerID {
		return ErrNotAdmin
	}
	p, err := g.player(spectatorID)
	if err != nil {
		return err
	}
	if !p.IsSpectator {
		return ruleErr(KindUnknownPlayer, "Player %q is not a spectator", spectatorID)
	}
	delete(g.state.SpectatorRequests, spectatorID)
	if !approved {
		g.removePlayer(spectatorID)
		return nil
	}
	p.SpectatorPending = false
	return nil
}

// AddAIPlayer adds a connected placeholder player and seats it on team.
func (g *Game) AddAIPlayer(id, name, avatar string, team Team) (int, error) {
	if g.state.Phase != PhaseLobby {
		return -1, ruleErr(KindWrongPhase, "Players can only be added in the lobby")
	}
	if !team.Valid() {
		return -1, ErrInvalidTeam
	}
	if _, ok := g.state.Players[id]; ok {
		return g.AssignSeat(id, team)
	}
	if len(g.state.participants()) >= g.maxPlayers {
		return -1, ErrRoomFull
	}
	if g.freeSeat(team, "") < 0 {
		return -1, ErrSeatUnavailable
	}
	g.state.Players[id] = &Player{
		ID:        id,
		Name:      name,
		Avatar:    avatar,
		Hand:      []game.Card{},
		Connected: true,
	}
	return g.AssignSeat(id, team)
}

// freeSeat returns the lowest preferred seat of team that is empty or
// already held by id, or -1.
func (g *Game) freeSeat(team Team, id string) int {
	for _, s := range preferredSeats(team) {
		if occupant := g.state.Seats[s]; occupant == "" || occupant == id {
			return s
		}
	}
	return -1
}

// AssignSeat moves the player to the lowest free seat of team. When the team
// has no free seat the player keeps their current seat.
func (g *Game) AssignSeat(playerID string, team Team) (int, error) {
	if g.state.Phase != PhaseLobby {
		return -1, ruleErr(KindWrongPhase, "Seats can only change in the lobby")
	}
	if !team.Valid() {
		return -1, ErrInvalidTeam
	}
	p, err := g.participant(playerID)
	if err != nil {
		return -1, err
	}
	seat := g.freeSeat(team, playerID)
	if seat < 0 {
		return -1, ruleErr(KindSeatUnavailable, "No seat available on team %s", team)
	}
	g.unseat(p)
	g.state.Seats[seat] = playerID
	p.Seat = &seat
	p.Team = team
	return seat, nil
}

func (g *Game) unseat(p *Player) bool {
	if p.Seat == nil {
		return false
	}
	if g.state.Seats[*p.Seat] == p.ID {
		g.state.Seats[*p.Seat] = ""
	}
	p.Seat = nil
	p.Team = TeamNone
	return true
}

// RemoveFromSeat frees the player's seat. Lobby only.
func (g *Game) RemoveFromSeat(playerID string) (bool, error) {
	if g.state.Phase != PhaseLobby {
		return false, ruleErr(KindWrongPhase, "Seats can only change in the lobby")
	}
	p, err := g.player(playerID)
	if err != nil {
		return false, err
	}
	return g.unseat(p), nil
}

// CleanupDisconnectedSeats frees every seat held by a disconnected player.
func (g *Game) CleanupDisconnectedSeats() (int, error) {
	if g.state.Phase != PhaseLobby {
		return 0, ruleErr(KindWrongPhase, "Seats can only change in the lobby")
	}
	n := 0
	for _, p := range g.state.Players {
		if !p.Connected && g.unseat(p) {
			n++
		}
	}
	return n, nil
}

// RemoveDisconnectedPlayers purges disconnected players from the roster and
// returns their ids in sorted order.
func (g *Game) RemoveDisconnectedPlayers() ([]string, error) {
	if g.state.Phase != PhaseLobby {
		return nil, ruleErr(KindWrongPhase, "Players can only be removed in the lobby")
	}
	var gone []string
	for id, p := range g.state.Players {
		if !p.Connected {
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	for _, id := range gone {
		g.removePlayer(id)
	}
	return gone, nil
}

func (g *Game) removePlayer(id string) {
	p, ok := g.state.Players[id]
	if !ok {
		return
	}
	g.unseat(p)
	delete(g.state.Players, id)
	delete(g.state.AbortVotes, id)
	delete(g.state.BackToLobbyVotes, id)
	delete(g.state.SpectatorRequests, id)
	if g.state.TurnPlayer == id {
		g.setTurn("")
	}
	if g.state.CurrentDealer == id {
		g.state.CurrentDealer = ""
	}
	if g.state.AskChainFrom == id {
		g.state.AskChainFrom = ""
	}
	if g.state.AdminPlayerID == id {
		g.promoteAdmin()
	}
}

// promoteAdmin hands the admin role to the seated player with the lowest
// seat, else to any remaining participant.
func (g *Game) promoteAdmin() {
	g.state.AdminPlayerID = ""
	if ps := g.state.participants(); len(ps) > 0 {
		g.state.AdminPlayerID = ps[0].ID
	}
}

// Connect marks the player connected. In the lobby it also clears out
// anyone still flagged as disconnected. It reports whether the player was
// returning from a disconnect.
func (g *Game) Connect(id string) (bool, error) {
	p, err := g.player(id)
	if err != nil {
		return false, err
	}
	reconnected := !p.Connected
	p.Connected = true
	if g.state.Phase == PhaseLobby {
		g.CleanupDisconnectedSeats()
		g.RemoveDisconnectedPlayers()
	}
	return reconnected, nil
}

// Disconnect removes the player entirely while in the lobby; otherwise the
// player stays in the room, hand intact, flagged as disconnected. It
// reports whether the player was removed.
func (g *Game) Disconnect(id string) (bool, error) {
	p, err := g.player(id)
	if err != nil {
		return false, err
	}
	if g.state.Phase == PhaseLobby {
		g.removePlayer(id)
		return true, nil
	}
	p.Connected = false
	return false, nil
}

// Start moves the room from lobby to ready, makes seat 0 the dealer and locks
// the lobby against new joins.
func (g *Game) Start() error {
	if g.state.Phase != PhaseLobby {
		return ruleErr(KindWrongPhase, "Game can only start from the lobby")
	}
	g.state.Phase = PhaseReady
	g.state.CurrentDealer = g.state.Seats[0]
	g.setTurn("")
	g.state.AskChainFrom = ""
	g.state.LobbyLocked = true
	return nil
}
