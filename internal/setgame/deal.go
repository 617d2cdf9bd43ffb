package setgame

import (
	"set-game-server/internal/game"
)

// DealtCard is one step of a deal, in the order the cards left the deck.
type DealtCard struct {
	Seat     int       `json:"seat"`
	PlayerID string    `json:"player_id"`
	Round    int       `json:"round"`
	Card     game.Card `json:"card"`
	FromSeat int       `json:"from_seat"`
}

// BuildDeck replaces the working deck with a freshly shuffled 52 cards.
func (g *Game) BuildDeck() {
	g.deck = game.NewDeck()
	g.deck.Shuffle(g.rng)
	g.state.DeckCount = g.deck.Count()
}

// DealAll deals the whole deck one card at a time, clockwise from startSeat,
// skipping empty seats. Every hand is replaced. fromSeat is only recorded in
// the returned sequence for animating the deal.
func (g *Game) DealAll(startSeat, fromSeat int) []DealtCard {
	var order []int
	for i := range NumSeats {
		seat := (startSeat + i) % NumSeats
		if g.state.Seats[seat] != "" {
			order = append(order, seat)
		}
	}
	if len(order) == 0 {
		return nil
	}

	for _, p := range g.state.Players {
		p.Hand = []game.Card{}
	}

	sequence := make([]DealtCard, 0, g.deck.Count())
	for round := 0; g.deck.Count() > 0; round++ {
		for _, seat := range order {
			cards := g.deck.Draw(1)
			if len(cards) == 0 {
				break
			}
			id := g.state.Seats[seat]
			p := g.state.Players[id]
			p.Hand = append(p.Hand, cards[0])
			sequence = append(sequence, DealtCard{
				Seat:     seat,
				PlayerID: id,
				Round:    round,
				Card:     cards[0],
				FromSeat: fromSeat,
			})
		}
	}
	g.state.DeckCount = 0
	return sequence
}
