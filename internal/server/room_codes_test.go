package server_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"set-game-server/internal/server"
)

func TestGenerateRoomIDFormat(t *testing.T) {
	assert := assert.New(t)

	for range 100 {
		id := server.GenerateRoomID(nil)

		assert.Len(id, 6)
		for _, ch := range id {
			assert.True(strings.ContainsRune("0123456789abcdef", ch), "unexpected %q in %s", ch, id)
		}
		assert.NoError(server.ValidateRoomID(id))
	}
}

func TestGenerateRoomIDSkipsUsed(t *testing.T) {
	used := make(map[string]bool)

	for range 1000 {
		id := server.GenerateRoomID(func(id string) bool { return used[id] })
		assert.False(t, used[id], "id %s was generated twice", id)
		used[id] = true
	}

	assert.Len(t, used, 1000)
}

func TestValidateRoomID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"a1b2c3", true},
		{"123456789012345678", true},
		{"my-room_2", true},
		{"", false},
		{"has space", false},
		{"../etc", false},
		{strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		err := server.ValidateRoomID(tt.id)
		if tt.valid {
			assert.NoError(t, err, tt.id)
		} else {
			assert.ErrorContains(t, err, "ROOM_ID_INVALID", tt.id)
		}
	}
}
