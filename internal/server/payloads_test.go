package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"set-game-server/internal/game"
	"set-game-server/internal/setgame"
)

func TestNormalizeCollaborators(t *testing.T) {
	want := setgame.Collaborators{"p2": {game.Queen, game.King}}
	tests := []struct {
		name string
		raw  string
		want setgame.Collaborators
	}{
		{"map", `{"p2": ["Q", "K"]}`, want},
		{"player_id list", `[{"player_id": "p2", "ranks": ["Q", "K"]}]`, want},
		{"pid list", `[{"pid": "p2", "ranks": ["Q", "K"]}]`, want},
		{"pair list", `[{"p2": ["Q", "K"]}]`, want},
		{"split entries merge", `[{"player_id": "p2", "ranks": ["Q"]}, {"pid": "p2", "ranks": ["K"]}]`, want},
		{"empty items skipped", `[{}, {"player_id": "p2", "ranks": ["Q", "K"]}]`, want},
		{"missing", ``, setgame.Collaborators{}},
		{"null", `null`, setgame.Collaborators{}},
		{"empty list", `[]`, setgame.Collaborators{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeCollaborators(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeCollaboratorsRejectsOtherShapes(t *testing.T) {
	for _, raw := range []string{`"p2"`, `42`, `{"p2": "Q"}`, `[{"player_id": "p2", "ranks": "Q"}]`, `[1, 2]`} {
		_, err := normalizeCollaborators(json.RawMessage(raw))
		assert.ErrorIs(t, err, errCollaboratorShape, raw)
	}
}

func TestDecodePayload(t *testing.T) {
	var req AskRequest
	require.NoError(t, decodePayload(nil, &req))
	require.NoError(t, decodePayload(json.RawMessage(`null`), &req))
	assert.Equal(t, AskRequest{}, req)

	require.NoError(t, decodePayload(json.RawMessage(`{"asker_id":"a1","suit":"hearts","set_type":"lower","ranks":["2"]}`), &req))
	assert.Equal(t, "a1", req.AskerID)
	assert.Equal(t, game.Hearts, req.Suit)
	assert.Equal(t, []game.Rank{game.Two}, req.Ranks)

	assert.ErrorContains(t, decodePayload(json.RawMessage(`{"asker_id": 7}`), &req), "INVALID_PAYLOAD")
}
