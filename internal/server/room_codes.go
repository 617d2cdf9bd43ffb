package server

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	roomIDLength    = 6
	maxRoomIDLength = 64
)

// GenerateRoomID returns the first six hex digits of a random UUID, retrying
// while inUse reports a collision.
func GenerateRoomID(inUse func(string) bool) string {
	for {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:roomIDLength]
		if inUse == nil || !inUse(id) {
			return id
		}
	}
}

// ValidateRoomID accepts generated ids as well as externally chosen ones
// (chat channel ids and the like): 1-64 characters of [A-Za-z0-9_-].
func ValidateRoomID(id string) error {
	if id == "" {
		return errors.New("ROOM_ID_INVALID: room id cannot be empty")
	}
	if len(id) > maxRoomIDLength {
		return errors.New("ROOM_ID_INVALID: room id too long (max 64 characters)")
	}
	for _, ch := range id {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
		default:
			return errors.New("ROOM_ID_INVALID: room id may only contain letters, digits, '-' and '_'")
		}
	}
	return nil
}
