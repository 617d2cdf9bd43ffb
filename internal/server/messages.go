package server

import (
	"encoding/json"
	"fmt"
)

// ClientMessage is the inbound envelope: {type, payload}.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func encodeMessage(msgType string, payload any) ([]byte, error) {
	data, err := json.Marshal(ServerMessage{Type: msgType, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msgType, err)
	}
	return data, nil
}

// decodePayload unmarshals a command payload. A missing payload decodes as {}.
func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("INVALID_PAYLOAD: %w", err)
	}
	return nil
}
