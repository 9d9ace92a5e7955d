// Package protocol defines the WebSocket message types of the floor dashboard.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Controller → dashboard messages
	TypeSnapshot   MessageType = "snapshot"   // Result of one tick
	TypeTransition MessageType = "transition" // Turn-holder state changed
	TypeAck        MessageType = "ack"        // Reply to a command

	// Dashboard → controller messages
	TypeQueue MessageType = "queue" // Queue an action (the operator's key press)
	TypeEnd   MessageType = "end"   // End the running action

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Controller → Dashboard Message Types
// =============================================================================

// SnapshotData mirrors one controller tick
type SnapshotData struct {
	ControllerID  string         `json:"controller_id"`
	Variant       string         `json:"variant"`
	Tick          uint64         `json:"tick"`
	At            int64          `json:"at"` // Unix milliseconds
	State         string         `json:"state"`
	Previous      string         `json:"previous"`
	Transition    string         `json:"transition,omitempty"`
	Changed       bool           `json:"changed"`
	Vector        []any          `json:"vector"`   // Wire-order tuple
	Channels      map[string]any `json:"channels"` // Same values keyed by channel name
	ActionQueued  bool           `json:"action_queued"`
	ActionRunning bool           `json:"action_running"`
}

// TransitionData describes a state change
type TransitionData struct {
	Tick uint64 `json:"tick"`
	From string `json:"from"`
	To   string `json:"to"`
	Rule string `json:"rule"`
	At   int64  `json:"at"` // Unix milliseconds
}

// AckData answers a command
type AckData struct {
	Command MessageType `json:"command"`
	OK      bool        `json:"ok"`
	Error   string      `json:"error,omitempty"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
