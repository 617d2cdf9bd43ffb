package setgame

import (
	"set-game-server/internal/game"
)

// GameSummary describes a finished game. Winner is "A", "B" or "tie".
type GameSummary struct {
	GameEnded  bool   `json:"game_ended"`
	Winner     string `json:"winner,omitempty"`
	TeamAScore int    `json:"team_a_score"`
	TeamBScore int    `json:"team_b_score"`
	TeamASets  int    `json:"team_a_sets"`
	TeamBSets  int    `json:"team_b_sets"`
}

// Summary reports the current scores without changing the phase.
func (g *Game) Summary() GameSummary {
	s := GameSummary{
		GameEnded:  g.state.Phase == PhaseEnded,
		TeamAScore: g.state.TeamScores[TeamA],
		TeamBScore: g.state.TeamScores[TeamB],
	}
	for _, ts := range g.state.TableSets {
		switch ts.OwnerTeam {
		case TeamA:
			s.TeamASets++
		case TeamB:
			s.TeamBSets++
		}
	}
	switch {
	case s.TeamAScore > s.TeamBScore:
		s.Winner = string(TeamA)
	case s.TeamBScore > s.TeamAScore:
		s.Winner = string(TeamB)
	default:
		s.Winner = "tie"
	}
	return s
}

// CheckGameEnd ends a game in play once every set is on the table or no
// player holds a card.
func (g *Game) CheckGameEnd() GameSummary {
	if g.state.Phase != PhasePlaying {
		return GameSummary{}
	}
	allEmpty := true
	for _, p := range g.state.participants() {
		if p.HasCards() {
			allEmpty = false
			break
		}
	}
	if len(g.state.TableSets) < game.SetCount && !allEmpty {
		return GameSummary{}
	}
	g.state.Phase = PhaseEnded
	g.lastDeclarer = ""
	return g.Summary()
}

type NewGameResult struct {
	Success            bool        `json:"success"`
	Reason             string      `json:"reason,omitempty"`
	DealerID           string      `json:"dealer_id,omitempty"`
	DealerSeat         int         `json:"dealer_seat"`
	TurnID             string      `json:"turn_id,omitempty"`
	TurnSeat           int         `json:"turn_seat"`
	OriginalDealerID   string      `json:"original_dealer_id,omitempty"`
	OriginalDealerSeat int         `json:"original_dealer_seat"`
	DealingSequence    []DealtCard `json:"dealing_sequence"`
}

// dealerSeat is the current dealer's seat, or 0 when there is none.
func (g *Game) dealerSeat() int {
	if seat := g.state.Seats.SeatOf(g.state.CurrentDealer); seat >= 0 {
		return seat
	}
	return 0
}

// ShuffleDealNewGame starts a game: it picks the dealer, resets the score
// and table, shuffles and deals the full deck. The first game of a room and
// the game after StartNewRound are dealt by the current dealer; otherwise
// the deal moves one seat clockwise. The player after the dealer goes first.
func (g *Game) ShuffleDealNewGame(requesterID string) (NewGameResult, error) {
	if _, err := g.participant(requesterID); err != nil {
		return NewGameResult{}, err
	}
	if g.state.Phase == PhasePlaying {
		return NewGameResult{Reason: "game_in_progress"}, nil
	}

	original := g.dealerSeat()
	seat := original
	if g.state.Phase != PhaseReady && g.state.CurrentDealer != "" {
		seat = (original + 1) % NumSeats
	}
	dealer := g.state.Seats[seat]
	if dealer == "" {
		return NewGameResult{Reason: "no_dealer"}, nil
	}
	turnSeat := (seat + 1) % NumSeats
	turn := g.state.Seats[turnSeat]
	if turn == "" {
		return NewGameResult{Reason: "no_turn_player"}, nil
	}

	res := NewGameResult{
		Success:            true,
		DealerID:           dealer,
		DealerSeat:         seat,
		TurnID:             turn,
		TurnSeat:           turnSeat,
		OriginalDealerID:   g.state.CurrentDealer,
		OriginalDealerSeat: original,
	}

	g.resetTable()
	g.state.Phase = PhasePlaying
	g.state.LobbyLocked = true
	g.state.CurrentDealer = dealer
	g.setTurn(turn)
	g.BuildDeck()
	res.DealingSequence = g.DealAll(seat, original)
	return res, nil
}

type NewRoundResult struct {
	Success      bool   `json:"success"`
	Reason       string `json:"reason,omitempty"`
	DealerID     string `json:"dealer_id,omitempty"`
	TurnPlayerID string `json:"turn_player_id,omitempty"`
}

// StartNewRound moves an ended game back to ready with the deal rotated one
// seat clockwise. Cards are not dealt until ShuffleDealNewGame.
func (g *Game) StartNewRound(requesterID string) (NewRoundResult, error) {
	if _, err := g.participant(requesterID); err != nil {
		return NewRoundResult{}, err
	}
	if g.state.Phase != PhaseEnded {
		return NewRoundResult{Reason: "game_not_ended"}, nil
	}
	seat := (g.dealerSeat() + 1) % NumSeats
	dealer := g.state.Seats[seat]
	if dealer == "" {
		return NewRoundResult{Reason: "no_dealer"}, nil
	}
	turn := g.state.Seats[(seat+1)%NumSeats]
	if turn == "" {
		return NewRoundResult{Reason: "no_turn_player"}, nil
	}

	g.resetTable()
	g.state.Phase = PhaseReady
	g.state.CurrentDealer = dealer
	g.setTurn("")
	for _, p := range g.state.Players {
		p.Hand = []game.Card{}
	}
	return NewRoundResult{Success: true, DealerID: dealer, TurnPlayerID: turn}, nil
}

// resetTable clears scores, captured sets and any open votes.
func (g *Game) resetTable() {
	g.state.TeamScores = map[Team]int{TeamA: 0, TeamB: 0}
	g.state.TableSets = []TableSet{}
	g.state.AskChainFrom = ""
	g.state.DeckCount = 0
	clear(g.state.AbortVotes)
	clear(g.state.BackToLobbyVotes)
}
