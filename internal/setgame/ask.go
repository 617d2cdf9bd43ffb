package setgame

import (
	"slices"

	"set-game-server/internal/game"
)

// AskResult is the first half of an ask. A successful ask leaves the turn
// with the asker until the target confirms.
type AskResult struct {
	Success        bool         `json:"success"`
	Reason         string       `json:"reason,omitempty"`
	AskerID        string       `json:"asker_id"`
	TargetID       string       `json:"target_id"`
	Suit           game.Suit    `json:"suit"`
	SetType        game.SetType `json:"set_type"`
	Ranks          []game.Rank  `json:"ranks"`
	PendingCards   []game.Card  `json:"pending_cards"`
	NeedsNoConfirm bool         `json:"needs_no_confirm"`
}

type ConfirmResult struct {
	Success     bool        `json:"success"`
	Reason      string      `json:"reason,omitempty"`
	Transferred []game.Card `json:"transferred"`
	NextTurn    string      `json:"next_turn"`
}

// PrepareAsk validates an ask and works out which cards the target would have
// to hand over. It never changes the turn or any hand.
func (g *Game) PrepareAsk(askerID, targetID string, suit game.Suit, setType game.SetType, ranks []game.Rank) (AskResult, error) {
	if g.state.Phase != PhasePlaying {
		return AskResult{}, ruleErr(KindWrongPhase, "Asking is only allowed during play")
	}
	if g.state.TurnPlayer != askerID {
		return AskResult{}, ErrNotYourTurn
	}
	if err := validSet(suit, setType); err != nil {
		return AskResult{}, err
	}
	asker, err := g.participant(askerID)
	if err != nil {
		return AskResult{}, err
	}
	target, err := g.participant(targetID)
	if err != nil {
		return AskResult{}, err
	}
	if !asker.Team.Valid() || !target.Team.Valid() {
		return AskResult{}, ruleErr(KindInvalidTeam, "Both players must be seated to ask")
	}
	if asker.Team == target.Team {
		return AskResult{}, ErrNotOpponent
	}

	res := AskResult{
		AskerID:      askerID,
		TargetID:     targetID,
		Suit:         suit,
		SetType:      setType,
		Ranks:        []game.Rank{},
		PendingCards: []game.Card{},
	}
	if !target.HasCards() {
		res.Reason = "target_empty"
		res.Ranks = append(res.Ranks, ranks...)
		return res, nil
	}

	owned := asker.ranksIn(suit, setType)
	if len(owned) == 0 {
		return AskResult{}, ErrMustHoldQualifyingCard
	}
	for _, r := range ranks {
		if !setType.Contains(r) || owned[r] || slices.Contains(res.Ranks, r) {
			continue
		}
		res.Ranks = append(res.Ranks, r)
	}

	for _, c := range target.Hand {
		if c.Suit == suit && slices.Contains(res.Ranks, c.Rank) {
			res.PendingCards = append(res.PendingCards, c)
		}
	}
	if len(res.PendingCards) == 0 {
		res.Reason = "no_match"
		res.NeedsNoConfirm = true
		return res, nil
	}
	res.Success = true
	return res, nil
}

// ConfirmPass is the target's answer to an ask. Cards the target really holds
// move to the asker, who keeps the turn. An empty answer, or one naming only
// cards the target does not hold, passes the turn to the target.
func (g *Game) ConfirmPass(askerID, targetID string, cards []game.Card) (ConfirmResult, error) {
	if g.state.Phase != PhasePlaying {
		return ConfirmResult{}, ruleErr(KindWrongPhase, "Passing is only allowed during play")
	}
	if g.state.TurnPlayer != askerID {
		return ConfirmResult{}, ErrNotYourTurn
	}
	asker, err := g.participant(askerID)
	if err != nil {
		return ConfirmResult{}, err
	}
	target, err := g.participant(targetID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if asker.Team == target.Team {
		return ConfirmResult{}, ErrNotOpponent
	}

	var claimed []game.Card
	for _, c := range cards {
		if target.holds(c) && !slices.Contains(claimed, c) {
			claimed = append(claimed, c)
		}
	}

	if len(claimed) > 0 {
		moved := target.take(func(c game.Card) bool { return slices.Contains(claimed, c) })
		asker.give(moved)
		g.setTurn(askerID)
		g.state.AskChainFrom = askerID
		return ConfirmResult{Success: true, Transferred: moved, NextTurn: askerID}, nil
	}

	g.state.AskChainFrom = ""
	if target.HasCards() {
		g.setTurn(targetID)
	} else {
		g.setTurn(g.nextCCWWithCards(seatOrZero(target), target.Team))
	}
	return ConfirmResult{Reason: "no_card", Transferred: []game.Card{}, NextTurn: g.state.TurnPlayer}, nil
}
