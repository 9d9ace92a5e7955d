package protocol

import "time"

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewSnapshotMessage creates a snapshot message
func NewSnapshotMessage(s SnapshotData) (*Message, error) {
	return NewMessage(TypeSnapshot, s)
}

// NewTransitionMessage creates a transition message
func NewTransitionMessage(tick uint64, from, to, rule string, at time.Time) (*Message, error) {
	return NewMessage(TypeTransition, TransitionData{
		Tick: tick,
		From: from,
		To:   to,
		Rule: rule,
		At:   at.UnixMilli(),
	})
}

// NewQueueMessage creates a queue command
func NewQueueMessage() (*Message, error) {
	return NewMessage(TypeQueue, nil)
}

// NewEndMessage creates an end command
func NewEndMessage() (*Message, error) {
	return NewMessage(TypeEnd, nil)
}

// NewAckMessage acknowledges cmd; a non-nil err marks it failed
func NewAckMessage(cmd MessageType, err error) (*Message, error) {
	ack := AckData{Command: cmd, OK: err == nil}
	if err != nil {
		ack.Error = err.Error()
	}
	return NewMessage(TypeAck, ack)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetSnapshotData extracts snapshot data from a message
func (m *Message) GetSnapshotData() (*SnapshotData, error) {
	var data SnapshotData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTransitionData extracts transition data from a message
func (m *Message) GetTransitionData() (*TransitionData, error) {
	var data TransitionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAckData extracts ack data from a message
func (m *Message) GetAckData() (*AckData, error) {
	var data AckData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// IsCommand reports whether the message asks the controller to act
func (m *Message) IsCommand() bool {
	return m.Type == TypeQueue || m.Type == TypeEnd
}
