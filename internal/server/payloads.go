package server

import (
	"bytes"
	"encoding/json"
	"errors"

	"set-game-server/internal/game"
	"set-game-server/internal/setgame"
)

var errCollaboratorShape = errors.New("INVALID_PAYLOAD: collaborators must be an object of id -> ranks or a list of {player_id, ranks}")

// normalizeCollaborators accepts the shapes clients send for laydown
// collaborators and folds them into one id -> ranks map:
//
//	{"p2": ["Q", "K"]}
//	[{"player_id": "p2", "ranks": ["Q", "K"]}]
//	[{"pid": "p2", "ranks": ["Q", "K"]}]
//	[{"p2": ["Q", "K"]}]
func normalizeCollaborators(raw json.RawMessage) (setgame.Collaborators, error) {
	out := setgame.Collaborators{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out, nil
	}

	switch raw[0] {
	case '{':
		var byID map[string][]game.Rank
		if err := json.Unmarshal(raw, &byID); err != nil {
			return nil, errCollaboratorShape
		}
		for id, ranks := range byID {
			out[id] = append(out[id], ranks...)
		}
		return out, nil
	case '[':
	default:
		return nil, errCollaboratorShape
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errCollaboratorShape
	}
	for _, item := range items {
		if id := collaboratorID(item); id != "" {
			var ranks []game.Rank
			if v, ok := item["ranks"]; ok {
				if err := json.Unmarshal(v, &ranks); err != nil {
					return nil, errCollaboratorShape
				}
			}
			out[id] = append(out[id], ranks...)
			continue
		}
		for id, v := range item {
			var ranks []game.Rank
			if json.Unmarshal(v, &ranks) == nil {
				out[id] = append(out[id], ranks...)
			}
		}
	}
	return out, nil
}

func collaboratorID(item map[string]json.RawMessage) string {
	for _, key := range []string{"player_id", "pid"} {
		v, ok := item[key]
		if !ok {
			continue
		}
		var id string
		if json.Unmarshal(v, &id) == nil && id != "" {
			return id
		}
	}
	return ""
}

func firstNonEmpty(ids ...string) string {
	for _, id := range ids {
		if id != "" {
			return id
		}
	}
	return ""
}
