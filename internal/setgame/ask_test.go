package setgame_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"set-game-server/internal/game"
	"set-game-server/internal/setgame"
)

func TestAskAndConfirm(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": cards(game.Hearts, game.Four),
		"b1": append(cards(game.Hearts, game.Two), cards(game.Spades, game.Ace)...),
	}, "a1")

	res, err := g.PrepareAsk("a1", "b1", game.Hearts, game.Lower, []game.Rank{game.Two, game.Three})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, cards(game.Hearts, game.Two), res.PendingCards)
	assert.Equal(t, "a1", g.State().TurnPlayer)
	assert.Len(t, hand(g, "b1"), 2)

	conf, err := g.ConfirmPass("a1", "b1", res.PendingCards)
	require.NoError(t, err)
	assert.True(t, conf.Success)
	assert.Equal(t, cards(game.Hearts, game.Two), conf.Transferred)
	assert.Equal(t, "a1", conf.NextTurn)
	assert.Equal(t, "a1", g.State().TurnPlayer)
	assert.Equal(t, "a1", g.State().AskChainFrom)
	assert.ElementsMatch(t, cards(game.Hearts, game.Four, game.Two), hand(g, "a1"))
	assert.Equal(t, cards(game.Spades, game.Ace), hand(g, "b1"))
}

func TestPrepareAskFiltersWantedRanks(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": cards(game.Hearts, game.Two, game.Four),
		"b1": cards(game.Hearts, game.Three, game.Eight),
	}, "a1")

	res, err := g.PrepareAsk("a1", "b1", game.Hearts, game.Lower,
		[]game.Rank{game.Two, game.Three, game.Three, game.Four, game.Eight})
	require.NoError(t, err)
	assert.Equal(t, []game.Rank{game.Three}, res.Ranks)
	assert.Equal(t, cards(game.Hearts, game.Three), res.PendingCards)
}

func TestPrepareAskNoMatch(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": cards(game.Hearts, game.Four),
		"b1": cards(game.Clubs, game.Three),
	}, "a1")

	res, err := g.PrepareAsk("a1", "b1", game.Hearts, game.Lower, []game.Rank{game.Three})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.NeedsNoConfirm)
	assert.Empty(t, res.PendingCards)
	assert.Equal(t, "a1", g.State().TurnPlayer)
}

func TestPrepareAskTargetEmpty(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": cards(game.Hearts, game.Four),
	}, "a1")

	res, err := g.PrepareAsk("a1", "b1", game.Hearts, game.Lower, []game.Rank{game.Three})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.NeedsNoConfirm)
	assert.Equal(t, "target_empty", res.Reason)
	assert.Equal(t, "a1", g.State().TurnPlayer)
}

func TestPrepareAskErrors(t *testing.T) {
	hands := map[string][]game.Card{
		"a1": cards(game.Hearts, game.Four),
		"a2": cards(game.Hearts, game.Five),
		"b1": cards(game.Hearts, game.Three),
	}
	tests := []struct {
		name   string
		asker  string
		target string
		suit   game.Suit
		set    game.SetType
		want   error
	}{
		{"not your turn", "a2", "b1", game.Hearts, game.Lower, setgame.ErrNotYourTurn},
		{"teammate", "a1", "a2", game.Hearts, game.Lower, setgame.ErrNotOpponent},
		{"unknown target", "a1", "zz", game.Hearts, game.Lower, setgame.ErrUnknownPlayer},
		{"no qualifying card", "a1", "b1", game.Hearts, game.Upper, setgame.ErrMustHoldQualifyingCard},
		{"other suit", "a1", "b1", game.Clubs, game.Lower, setgame.ErrMustHoldQualifyingCard},
		{"bad set", "a1", "b1", game.Suit("stars"), game.Lower, setgame.ErrInvalidCard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := playing(t, hands, "a1")
			_, err := g.PrepareAsk(tt.asker, tt.target, tt.suit, tt.set, []game.Rank{game.Three})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPrepareAskOutsidePlay(t *testing.T) {
	g := seated(t)
	_, err := g.PrepareAsk("a1", "b1", game.Hearts, game.Lower, nil)
	assert.ErrorIs(t, err, setgame.ErrWrongPhase)
}

func TestConfirmPassDenied(t *testing.T) {
	t.Run("explicit no passes the turn to the target", func(t *testing.T) {
		g := playing(t, map[string][]game.Card{
			"a1": cards(game.Hearts, game.Four),
			"b1": cards(game.Spades, game.Ace),
		}, "a1")
		g.State().AskChainFrom = "a1"

		res, err := g.ConfirmPass("a1", "b1", nil)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "no_card", res.Reason)
		assert.Equal(t, "b1", res.NextTurn)
		assert.Equal(t, "b1", g.State().TurnPlayer)
		assert.Equal(t, "", g.State().AskChainFrom)
	})

	t.Run("a claimed card the target lacks is not moved", func(t *testing.T) {
		g := playing(t, map[string][]game.Card{
			"a1": cards(game.Hearts, game.Four),
			"b1": cards(game.Spades, game.Ace),
		}, "a1")

		res, err := g.ConfirmPass("a1", "b1", cards(game.Hearts, game.Five))
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Empty(t, res.Transferred)
		assert.Equal(t, cards(game.Hearts, game.Four), hand(g, "a1"))
		assert.Equal(t, "b1", g.State().TurnPlayer)
	})

	t.Run("an empty-handed target skips to a teammate counter-clockwise", func(t *testing.T) {
		g := playing(t, map[string][]game.Card{
			"a1": cards(game.Hearts, game.Four),
			"b2": cards(game.Clubs, game.Two),
			"b3": cards(game.Clubs, game.Three),
		}, "a1")

		res, err := g.ConfirmPass("a1", "b1", nil)
		require.NoError(t, err)
		assert.Equal(t, "b3", res.NextTurn)
	})

	t.Run("with no teammate holding cards anyone with cards plays", func(t *testing.T) {
		g := playing(t, map[string][]game.Card{
			"a1": cards(game.Hearts, game.Four),
			"a3": cards(game.Clubs, game.Three),
		}, "a1")

		res, err := g.ConfirmPass("a1", "b1", nil)
		require.NoError(t, err)
		assert.Equal(t, "a1", res.NextTurn)
	})
}

func TestConfirmPassErrors(t *testing.T) {
	g := playing(t, map[string][]game.Card{
		"a1": cards(game.Hearts, game.Four),
		"b1": cards(game.Hearts, game.Five),
	}, "a1")

	_, err := g.ConfirmPass("b1", "a1", cards(game.Hearts, game.Four))
	assert.ErrorIs(t, err, setgame.ErrNotYourTurn)

	_, err = g.ConfirmPass("a1", "a2", nil)
	assert.ErrorIs(t, err, setgame.ErrNotOpponent)

	assert.Equal(t, cards(game.Hearts, game.Four), hand(g, "a1"))
	assert.Equal(t, "a1", g.State().TurnPlayer)
}
