package setgame

import (
	"maps"
	"slices"
	"sort"

	"set-game-server/internal/game"
)

// Collaborators maps a teammate id to the ranks they are claimed to hold.
type Collaborators map[string][]game.Rank

type Contribution struct {
	PlayerID string      `json:"player_id"`
	Cards    []game.Card `json:"cards"`
}

type LaydownResult struct {
	Success         bool           `json:"success"`
	WhoID           string         `json:"who_id"`
	OwnerTeam       Team           `json:"owner_team"`
	Suit            game.Suit      `json:"suit"`
	SetType         game.SetType   `json:"set_type"`
	Contributors    []Contribution `json:"contributors"`
	HandoffEligible []string       `json:"handoff_eligible"`
	Scores          map[Team]int   `json:"scores"`
	NextTurn        string         `json:"next_turn"`
	GameEnd         GameSummary    `json:"game_end"`
}

// Laydown resolves a declaration that the declarer's team holds the whole
// (suit, setType) set between them. A correct declaration scores for the
// declarer's team. An incorrect one forfeits every card of the set, wherever
// it is, to the opponents along with the points.
func (g *Game) Laydown(whoID string, suit game.Suit, setType game.SetType, collaborators Collaborators) (LaydownResult, error) {
	if g.state.Phase != PhasePlaying {
		return LaydownResult{}, ruleErr(KindWrongPhase, "Laydowns are only allowed during play")
	}
	if err := validSet(suit, setType); err != nil {
		return LaydownResult{}, err
	}
	declarer, err := g.participant(whoID)
	if err != nil {
		return LaydownResult{}, err
	}
	if !declarer.Team.Valid() {
		return LaydownResult{}, ruleErr(KindInvalidTeam, "%s must take a seat before laying down", declarer.Name)
	}
	if g.state.hasTableSet(suit, setType) {
		return LaydownResult{}, ruleErr(KindSetAlreadyCaptured, "%s %s is already on the table", suit, setType)
	}

	ids := make([]string, 0, len(collaborators))
	for id := range collaborators {
		if id != whoID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	declared := declarer.ranksIn(suit, setType)
	verified := make(map[string]map[game.Rank]bool, len(ids))
	for _, id := range ids {
		p, err := g.participant(id)
		if err != nil {
			return LaydownResult{}, err
		}
		if p.Team != declarer.Team {
			return LaydownResult{}, ruleErr(KindCollaboratorNotTeammate, "%s is not on your team", p.Name)
		}
		if !p.HasCards() {
			return LaydownResult{}, ruleErr(KindCollaboratorEmptyHand, "Cannot contribute from %s - they have no cards", p.Name)
		}
		held := p.ranksIn(suit, setType)
		verified[id] = make(map[game.Rank]bool)
		for _, r := range collaborators[id] {
			if held[r] {
				verified[id][r] = true
				declared[r] = true
			}
		}
	}

	res := LaydownResult{
		WhoID:           whoID,
		Suit:            suit,
		SetType:         setType,
		Contributors:    []Contribution{},
		HandoffEligible: []string{},
	}
	heldTurn := g.state.TurnPlayer == whoID
	if len(declared) == len(setType.Ranks()) {
		g.layDownSuccess(&res, declarer, ids, verified, heldTurn)
	} else {
		g.layDownFailure(&res, declarer)
	}
	res.GameEnd = g.CheckGameEnd()
	res.Scores = maps.Clone(g.state.TeamScores)
	res.NextTurn = g.state.TurnPlayer
	return res, nil
}

func (g *Game) layDownSuccess(res *LaydownResult, declarer *Player, ids []string, verified map[string]map[game.Rank]bool, heldTurn bool) {
	inSet := func(c game.Card) bool { return c.InSet(res.Suit, res.SetType) }
	if got := declarer.take(inSet); len(got) > 0 {
		res.Contributors = append(res.Contributors, Contribution{declarer.ID, got})
	}
	for _, id := range ids {
		ranks := verified[id]
		if len(ranks) == 0 {
			continue
		}
		got := g.state.Players[id].take(func(c game.Card) bool { return inSet(c) && ranks[c.Rank] })
		if len(got) > 0 {
			res.Contributors = append(res.Contributors, Contribution{id, got})
			res.HandoffEligible = append(res.HandoffEligible, id)
		}
	}

	res.Success = true
	res.OwnerTeam = declarer.Team
	g.capture(res.Suit, res.SetType, declarer.Team)

	// An emptied turn player gives the turn away unless the declarer can
	// still hand it to a contributing teammate. Otherwise nobody could ask.
	if turn := g.state.TurnPlayer; turn != "" && !g.hasCards(turn) {
		canHandoff := turn == declarer.ID && slices.ContainsFunc(res.HandoffEligible, g.hasCards)
		if !canHandoff {
			tp := g.state.Players[turn]
			g.setTurn(g.nextCCWWithCards(seatOrZero(tp), tp.Team))
		}
	}
	// Only a declarer who held the turn may hand it off.
	if heldTurn && g.state.TurnPlayer == declarer.ID {
		g.lastDeclarer = declarer.ID
	}
}

func (g *Game) layDownFailure(res *LaydownResult, declarer *Player) {
	winner := declarer.Team.Opponent()
	for _, p := range g.state.participants() {
		if got := p.take(func(c game.Card) bool { return c.InSet(res.Suit, res.SetType) }); len(got) > 0 {
			res.Contributors = append(res.Contributors, Contribution{p.ID, got})
		}
	}
	res.OwnerTeam = winner
	g.capture(res.Suit, res.SetType, winner)
	g.state.AskChainFrom = ""
	g.setTurn(g.nextCCWWithCards(seatOrZero(declarer), winner))
}

func (g *Game) capture(suit game.Suit, setType game.SetType, owner Team) {
	g.state.TableSets = append(g.state.TableSets, TableSet{
		Suit:      suit,
		SetType:   setType,
		Cards:     setType.Cards(suit),
		OwnerTeam: owner,
	})
	g.state.TeamScores[owner] += setType.Points()
}

type HandoffResult struct {
	OK         bool   `json:"ok"`
	Reason     string `json:"reason,omitempty"`
	TurnPlayer string `json:"turn_player"`
}

// HandoffAfterLaydown lets the declarer of the last successful laydown pass
// the turn to a teammate who still has cards.
func (g *Game) HandoffAfterLaydown(whoID, toID string) HandoffResult {
	fail := func(reason string) HandoffResult {
		return HandoffResult{Reason: reason, TurnPlayer: g.state.TurnPlayer}
	}
	if g.state.Phase != PhasePlaying {
		return fail("not_playing")
	}
	from, ok := g.state.Players[whoID]
	if !ok {
		return fail("unknown_player")
	}
	to, ok := g.state.Players[toID]
	if !ok {
		return fail("unknown_player")
	}
	if whoID != g.lastDeclarer {
		return fail("not_declarer")
	}
	if whoID == toID || from.Team != to.Team || to.IsSpectator {
		return fail("not_teammate")
	}
	if !to.HasCards() {
		return fail("empty_hand")
	}
	g.setTurn(toID)
	return HandoffResult{OK: true, TurnPlayer: toID}
}

type PassResult struct {
	FromPlayer    string      `json:"from_player"`
	ToPlayer      string      `json:"to_player"`
	Cards         []game.Card `json:"cards"`
	FromHandCount int         `json:"from_hand_count"`
	ToHandCount   int         `json:"to_hand_count"`
	GameEnd       GameSummary `json:"game_end"`
}

// PassCards moves cards to an opponent outright, with no ask and no turn
// change.
func (g *Game) PassCards(fromID, toID string, cards []game.Card) (PassResult, error) {
	if g.state.Phase != PhasePlaying {
		return PassResult{}, ruleErr(KindWrongPhase, "Cards can only be passed during play")
	}
	from, err := g.participant(fromID)
	if err != nil {
		return PassResult{}, err
	}
	to, err := g.participant(toID)
	if err != nil {
		return PassResult{}, err
	}
	if !from.Team.Valid() || !to.Team.Valid() {
		return PassResult{}, ruleErr(KindInvalidTeam, "Both players must be seated to pass cards")
	}
	if from.Team == to.Team {
		return PassResult{}, ruleErr(KindNotOpponent, "Can only pass cards to the opposing team")
	}
	for _, c := range cards {
		if !c.Valid() {
			return PassResult{}, ruleErr(KindInvalidCard, "Unknown card %s", c)
		}
		if !from.holds(c) {
			return PassResult{}, ErrCardsNotHeld
		}
	}

	moved := from.take(func(c game.Card) bool { return slices.Contains(cards, c) })
	to.give(moved)
	if moved == nil {
		moved = []game.Card{}
	}
	return PassResult{
		FromPlayer:    fromID,
		ToPlayer:      toID,
		Cards:         moved,
		FromHandCount: len(from.Hand),
		ToHandCount:   len(to.Hand),
		GameEnd:       g.CheckGameEnd(),
	}, nil
}
