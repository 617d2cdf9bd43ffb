package setgame_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"set-game-server/internal/game"
	"set-game-server/internal/setgame"
)

var allLower = []game.Rank{game.Two, game.Three, game.Four, game.Five, game.Six, game.Seven}

func TestLaydownSolo(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": append(cards(game.Hearts, allLower...), cards(game.Spades, game.Ace)...),
		"b1": cards(game.Clubs, game.Two),
	}, "a1")

	res, err := g.Laydown("a1", game.Hearts, game.Lower, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, setgame.TeamA, res.OwnerTeam)
	assert.Equal(t, 20, res.Scores[setgame.TeamA])
	assert.Equal(t, 0, res.Scores[setgame.TeamB])
	assert.Empty(t, res.HandoffEligible)
	assert.False(t, res.GameEnd.GameEnded)

	s := g.State()
	require.Len(t, s.TableSets, 1)
	assert.Equal(t, setgame.TableSet{
		Suit:      game.Hearts,
		SetType:   game.Lower,
		Cards:     cards(game.Hearts, allLower...),
		OwnerTeam: setgame.TeamA,
	}, s.TableSets[0])
	assert.Equal(t, cards(game.Spades, game.Ace), hand(g, "a1"))
	assert.Equal(t, "a1", s.TurnPlayer)
}

func TestLaydownWithCollaborator(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": append(cards(game.Hearts, game.Eight, game.Nine, game.Ten, game.Jack), cards(game.Clubs, game.Two)...),
		"a2": append(cards(game.Hearts, game.Queen, game.King, game.Ace), cards(game.Clubs, game.Three)...),
		"b1": cards(game.Clubs, game.Four),
	}, "a1")

	res, err := g.Laydown("a1", game.Hearts, game.Upper, setgame.Collaborators{
		"a2": {game.Queen, game.King, game.Ace},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 30, res.Scores[setgame.TeamA])
	assert.Equal(t, []string{"a2"}, res.HandoffEligible)
	assert.Equal(t, []setgame.Contribution{
		{PlayerID: "a1", Cards: cards(game.Hearts, game.Eight, game.Nine, game.Ten, game.Jack)},
		{PlayerID: "a2", Cards: cards(game.Hearts, game.Queen, game.King, game.Ace)},
	}, res.Contributors)
	assert.Equal(t, cards(game.Clubs, game.Two), hand(g, "a1"))
	assert.Equal(t, cards(game.Clubs, game.Three), hand(g, "a2"))
	assert.Equal(t, "a1", g.State().TurnPlayer)

	h := g.HandoffAfterLaydown("a1", "a2")
	assert.True(t, h.OK)
	assert.Equal(t, "a2", g.State().TurnPlayer)

	h = g.HandoffAfterLaydown("a1", "a2")
	assert.False(t, h.OK)
	assert.Equal(t, "not_declarer", h.Reason)
}

// A false declaration forfeits the set to the other team and the turn goes
// counter-clockwise to a player on that team who still has cards.
func TestLaydownFailure(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": cards(game.Hearts, game.Eight, game.Nine, game.Ten, game.Jack),
		"a2": append(cards(game.Hearts, game.Queen, game.King), cards(game.Clubs, game.Two)...),
		"b1": append(cards(game.Hearts, game.Ace), cards(game.Clubs, game.Three)...),
		"b2": cards(game.Clubs, game.Five),
		"a3": cards(game.Clubs, game.Six),
		"b3": cards(game.Clubs, game.Four),
	}, "a1")

	res, err := g.Laydown("a1", game.Hearts, game.Upper, setgame.Collaborators{
		"a2": {game.Queen, game.King, game.Ace},
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, setgame.TeamB, res.OwnerTeam)
	assert.Equal(t, 30, res.Scores[setgame.TeamB])
	assert.Equal(t, 0, res.Scores[setgame.TeamA])

	s := g.State()
	require.Len(t, s.TableSets, 1)
	assert.Equal(t, setgame.TeamB, s.TableSets[0].OwnerTeam)
	assert.Equal(t, game.Upper.Cards(game.Hearts), s.TableSets[0].Cards)

	assert.Empty(t, hand(g, "a1"))
	assert.Equal(t, cards(game.Clubs, game.Two), hand(g, "a2"))
	assert.Equal(t, cards(game.Clubs, game.Three), hand(g, "b1"))
	assert.Equal(t, []string{"a1", "b1", "a2"}, contributorIDs(res.Contributors))

	assert.Equal(t, "b3", s.TurnPlayer)
	assert.Equal(t, "b3", res.NextTurn)
}

func TestLaydownFailureSkipsEmptyWinners(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": cards(game.Hearts, game.Two),
		"b1": cards(game.Hearts, game.Three),
		"b2": cards(game.Clubs, game.Five),
		"a3": cards(game.Clubs, game.Six),
	}, "a1")

	res, err := g.Laydown("a1", game.Hearts, game.Lower, nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "b2", res.NextTurn)
}

func TestLaydownDeterministic(t *testing.T) {
	run := func() (setgame.LaydownResult, setgame.RoomState) {
		g := playing(t, map[string][]game.Card{
			"a1": cards(game.Spades, game.Two, game.Three, game.Four),
			"a2": cards(game.Spades, game.Five, game.Six),
			"a3": cards(game.Clubs, game.Nine),
			"b1": cards(game.Spades, game.Seven),
			"b2": cards(game.Clubs, game.Ten),
		}, "a1")
		res, err := g.Laydown("a1", game.Spades, game.Lower, setgame.Collaborators{
			"a2": {game.Five, game.Six, game.Seven},
			"a3": {game.Seven},
		})
		require.NoError(t, err)
		return res, g.Snapshot()
	}

	res1, state1 := run()
	res2, state2 := run()
	assert.False(t, res1.Success)
	assert.Equal(t, res1, res2)
	assert.Equal(t, state1, state2)
}

func TestLaydownErrors(t *testing.T) {
	hands := map[string][]game.Card{
		"a1": cards(game.Hearts, game.Two, game.Three),
		"a2": cards(game.Hearts, game.Four),
		"b1": cards(game.Hearts, game.Five),
	}
	tests := []struct {
		name   string
		collab setgame.Collaborators
		want   error
	}{
		{"opponent named", setgame.Collaborators{"b1": {game.Five}}, setgame.ErrCollaboratorNotTeammate},
		{"empty-handed teammate", setgame.Collaborators{"a3": {game.Six}}, setgame.ErrCollaboratorEmptyHand},
		{"unknown teammate", setgame.Collaborators{"zz": {game.Six}}, setgame.ErrUnknownPlayer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := playing(t, hands, "a1")
			before := g.Snapshot()

			_, err := g.Laydown("a1", game.Hearts, game.Lower, tt.collab)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, g.Snapshot())
		})
	}
}

func TestLaydownSetAlreadyCaptured(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": append(cards(game.Hearts, allLower...), cards(game.Clubs, game.Two)...),
		"b1": cards(game.Clubs, game.Three),
	}, "a1")

	_, err := g.Laydown("a1", game.Hearts, game.Lower, nil)
	require.NoError(t, err)

	_, err = g.Laydown("b1", game.Hearts, game.Lower, nil)
	assert.ErrorIs(t, err, setgame.ErrSetAlreadyCaptured)
	assert.Equal(t, 20, g.State().TeamScores[setgame.TeamA])
	assert.Equal(t, 0, g.State().TeamScores[setgame.TeamB])
}

func TestLaydownEmptiedDeclarerPassesTurn(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": cards(game.Hearts, allLower...),
		"a3": cards(game.Clubs, game.Two),
		"b1": cards(game.Clubs, game.Three),
	}, "a1")

	res, err := g.Laydown("a1", game.Hearts, game.Lower, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "a3", res.NextTurn)
}

func TestLaydownEndsGame(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": cards(game.Hearts, allLower...),
	}, "a1")

	res, err := g.Laydown("a1", game.Hearts, game.Lower, nil)
	require.NoError(t, err)
	assert.Equal(t, setgame.GameSummary{
		GameEnded:  true,
		Winner:     "A",
		TeamAScore: 20,
		TeamASets:  1,
	}, res.GameEnd)
	assert.Equal(t, setgame.PhaseEnded, g.Phase())
}

func TestHandoffAfterLaydownRejections(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": append(cards(game.Hearts, allLower...), cards(game.Clubs, game.Two)...),
		"a2": cards(game.Clubs, game.Three),
		"b1": cards(game.Clubs, game.Four),
	}, "a1")

	h := g.HandoffAfterLaydown("a1", "a2")
	assert.Equal(t, "not_declarer", h.Reason)

	_, err := g.Laydown("a1", game.Hearts, game.Lower, nil)
	require.NoError(t, err)

	tests := []struct {
		from, to string
		reason   string
	}{
		{"a1", "zz", "unknown_player"},
		{"a2", "a1", "not_declarer"},
		{"a1", "b1", "not_teammate"},
		{"a1", "a1", "not_teammate"},
		{"a1", "a3", "empty_hand"},
	}
	for _, tt := range tests {
		h := g.HandoffAfterLaydown(tt.from, tt.to)
		assert.False(t, h.OK, "%s -> %s", tt.from, tt.to)
		assert.Equal(t, tt.reason, h.Reason, "%s -> %s", tt.from, tt.to)
		assert.Equal(t, "a1", h.TurnPlayer)
	}
}

// withUnseated deals a room of five seated players plus "x", who joined the
// lobby but never took a seat.
func withUnseated(t *testing.T) *setgame.Game {
	t.Helper()
	g := setgame.NewGame("room1", setgame.WithRand(rand.New(rand.NewSource(7))))
	for _, id := range seatOrder[:5] {
		_, _, err := g.Join(id, id, "")
		require.NoError(t, err)
		team := setgame.TeamA
		if id[0] == 'b' {
			team = setgame.TeamB
		}
		_, err = g.AssignSeat(id, team)
		require.NoError(t, err)
	}
	_, _, err := g.Join("x", "x", "")
	require.NoError(t, err)
	require.NoError(t, g.Start())
	_, err = g.ShuffleDealNewGame("a1")
	require.NoError(t, err)
	return g
}

func TestUnseatedPlayerCannotPlay(t *testing.T) {
	g := withUnseated(t)
	before := g.Snapshot()

	_, err := g.Laydown("x", game.Hearts, game.Upper, nil)
	assert.ErrorIs(t, err, setgame.ErrInvalidTeam)

	turn := g.State().TurnPlayer
	_, err = g.PrepareAsk(turn, "x", game.Hearts, game.Upper, []game.Rank{game.Ace})
	assert.ErrorIs(t, err, setgame.ErrInvalidTeam)

	_, err = g.PassCards("a1", "x", hand(g, "a1")[:1])
	assert.ErrorIs(t, err, setgame.ErrInvalidTeam)

	assert.Equal(t, before, g.Snapshot())
	assert.Empty(t, g.State().TableSets)
	assert.NotContains(t, g.State().TeamScores, setgame.TeamNone)
}

// Laying down out of turn scores the set but does not let the declarer take
// the turn away from the other team.
func TestLaydownOutOfTurnCannotHandoff(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": append(cards(game.Hearts, allLower...), cards(game.Clubs, game.Two)...),
		"a2": cards(game.Clubs, game.Three),
		"b1": cards(game.Clubs, game.Four),
	}, "b1")

	res, err := g.Laydown("a1", game.Hearts, game.Lower, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "b1", res.NextTurn)

	h := g.HandoffAfterLaydown("a1", "a2")
	assert.False(t, h.OK)
	assert.Equal(t, "not_declarer", h.Reason)
	assert.Equal(t, "b1", g.State().TurnPlayer)
}

// A declarer whose laydown passed the turn on has nothing left to hand off.
func TestLaydownEmptiedDeclarerCannotHandoff(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": cards(game.Hearts, allLower...),
		"a3": cards(game.Clubs, game.Two),
		"b1": cards(game.Clubs, game.Three),
	}, "a1")

	_, err := g.Laydown("a1", game.Hearts, game.Lower, nil)
	require.NoError(t, err)

	h := g.HandoffAfterLaydown("a1", "a3")
	assert.Equal(t, "not_declarer", h.Reason)
	assert.Equal(t, "a3", h.TurnPlayer)
}

func TestPassCards(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": cards(game.Hearts, game.Two, game.Three),
		"b1": cards(game.Clubs, game.Four),
	}, "a1")

	_, err := g.PassCards("a1", "a2", cards(game.Hearts, game.Two))
	assert.ErrorIs(t, err, setgame.ErrNotOpponent)

	_, err = g.PassCards("a1", "b1", cards(game.Hearts, game.Two, game.Nine))
	assert.ErrorIs(t, err, setgame.ErrCardsNotHeld)
	assert.Len(t, hand(g, "a1"), 2)

	res, err := g.PassCards("a1", "b1", cards(game.Hearts, game.Two))
	require.NoError(t, err)
	assert.Equal(t, 1, res.FromHandCount)
	assert.Equal(t, 2, res.ToHandCount)
	assert.False(t, res.GameEnd.GameEnded)
	assert.Contains(t, hand(g, "b1"), game.Card{Suit: game.Hearts, Rank: game.Two})
	assert.Equal(t, "a1", g.State().TurnPlayer)
}

func contributorIDs(cs []setgame.Contribution) []string {
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, c.PlayerID)
	}
	return ids
}
