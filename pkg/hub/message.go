// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import "encoding/json"

// Message is one text frame to be broadcast to clients
type Message struct {
	Data []byte
}

// NewJSONMessage creates a message from pre-encoded JSON
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}

// EncodeJSON marshals v into a message
func EncodeJSON(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
