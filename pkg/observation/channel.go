// Package observation defines the fixed-schema observation vector exchanged
// between perception and the turn-taking decision logic.
//
// Every tick the engine consumes exactly one Vector. Each of its ten slots is
// addressed by a named Channel with a declared Kind, never by a bare index:
//
//	v := observation.New()
//	v.SetBool(observation.VoiceActivity, true)
//	v.SetInt(observation.TimeSinceLastActivity, 120)
//
// A Vector is total once every channel has been written with its declared
// kind; Validate reports anything else as a *ValidationError.
package observation

import "fmt"

// Channel names one slot of the observation vector.
type Channel int

// Channels in wire order. The numeric value is the slot index.
const (
	// VoiceActivity is true when someone other than self is vocalizing.
	VoiceActivity Channel = iota
	// ActionQueued is true when self has a pending action awaiting the floor.
	ActionQueued
	// WantsTurn is true when some other party signals desire for the floor.
	WantsTurn
	// OtherAccepts is true when the other party accepted a floor offer.
	OtherAccepts
	// TimeSinceLastActivity is the elapsed milliseconds since the last
	// turn-relevant activity.
	TimeSinceLastActivity
	// UtteranceComplete is true when the current utterance has finished.
	UtteranceComplete
	// OtherLookingAtMe is true when a partner's gaze is on self.
	OtherLookingAtMe
	// OtherPresenting is true when a partner gestures toward self.
	OtherPresenting
	// WhoTalking is the agent id of the current speaker (SelfID for self).
	WhoTalking
	// RunningAction is true while self executes a turn-taking action.
	RunningAction

	// NumChannels is the fixed vector length.
	NumChannels = int(RunningAction) + 1
)

// SelfID is the WhoTalking value identifying the controlled agent.
const SelfID = -1

// Kind is the declared value type of a channel.
type Kind int

const (
	// KindBool channels carry a boolean.
	KindBool Kind = iota + 1
	// KindInt channels carry an integer.
	KindInt
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	default:
		return "unknown"
	}
}

var channelNames = [NumChannels]string{
	VoiceActivity:         "voice_activity",
	ActionQueued:          "action_queued",
	WantsTurn:             "wants_turn",
	OtherAccepts:          "other_accepts",
	TimeSinceLastActivity: "time_since_last_activity",
	UtteranceComplete:     "utterance_complete",
	OtherLookingAtMe:      "other_looking_at_me",
	OtherPresenting:       "other_presenting",
	WhoTalking:            "who_talking",
	RunningAction:         "running_action",
}

var channelKinds = [NumChannels]Kind{
	VoiceActivity:         KindBool,
	ActionQueued:          KindBool,
	WantsTurn:             KindBool,
	OtherAccepts:          KindBool,
	TimeSinceLastActivity: KindInt,
	UtteranceComplete:     KindBool,
	OtherLookingAtMe:      KindBool,
	OtherPresenting:       KindBool,
	WhoTalking:            KindInt,
	RunningAction:         KindBool,
}

// Channels returns all channels in wire order.
func Channels() []Channel {
	out := make([]Channel, NumChannels)
	for i := range out {
		out[i] = Channel(i)
	}
	return out
}

// Valid reports whether c is one of the ten schema channels.
func (c Channel) Valid() bool {
	return c >= 0 && int(c) < NumChannels
}

// String returns the snake_case channel name.
func (c Channel) String() string {
	if !c.Valid() {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// Kind returns the declared value type of the channel.
func (c Channel) Kind() Kind {
	if !c.Valid() {
		return 0
	}
	return channelKinds[c]
}

// ParseChannel resolves a snake_case channel name.
func ParseChannel(name string) (Channel, bool) {
	for i, n := range channelNames {
		if n == name {
			return Channel(i), true
		}
	}
	return 0, false
}
