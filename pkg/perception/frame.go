// Package perception defines the raw per-tick feature groups a perception
// collaborator hands to the turn controller, and sources that produce them.
package perception

import (
	"context"
	"errors"
)

// Gaze codes per partner, relative to the robot.
const (
	GazeAtSelf = 0  // looking at the robot
	GazeLeft   = -1 // within reach, left of the robot
	GazeRight  = 1  // within reach, right of the robot
	GazeAway   = -2 // looking elsewhere
)

// Speaker codes for Frame.WhoSpeaking besides partner indexes.
const (
	SpeakerSelf   = -1
	SpeakerNobody = -2
)

// Utterance describes the utterance currently in the air.
type Utterance struct {
	IncludesPronoun bool `yaml:"includes_pronoun" json:"includes_pronoun"`
	Speaking        bool `yaml:"speaking" json:"speaking"`
}

// Point is a 2-D position of a participant.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Frame is one tick of raw perception: utterance, gaze, position, turn and
// scene features. Per-partner slices are indexed by partner id.
type Frame struct {
	Utterance   Utterance `yaml:"utterance" json:"utterance"`
	Gaze        []int     `yaml:"gaze" json:"gaze"`
	Positions   []Point   `yaml:"positions" json:"positions"`
	WhoSpeaking int       `yaml:"who_speaking" json:"who_speaking"`
	Gesturing   []bool    `yaml:"gesturing" json:"gesturing"`
}

// LookingAtSelf reports whether partner p's gaze is on the robot.
func (f Frame) LookingAtSelf(p int) bool {
	return p >= 0 && p < len(f.Gaze) && f.Gaze[p] == GazeAtSelf
}

// IsGesturing reports whether partner p is presenting toward the robot.
func (f Frame) IsGesturing(p int) bool {
	return p >= 0 && p < len(f.Gesturing) && f.Gesturing[p]
}

// AnyoneLookingAtSelf reports whether any partner looks at the robot.
func (f Frame) AnyoneLookingAtSelf() bool {
	for p := range f.Gaze {
		if f.LookingAtSelf(p) {
			return true
		}
	}
	return false
}

// AnyoneGesturing reports whether any partner is presenting.
func (f Frame) AnyoneGesturing() bool {
	for _, g := range f.Gesturing {
		if g {
			return true
		}
	}
	return false
}

// OtherSpeaking reports whether someone other than the robot is speaking.
func (f Frame) OtherSpeaking() bool {
	return f.Utterance.Speaking && f.WhoSpeaking != SpeakerSelf
}

// ErrExhausted is returned by finite sources once every frame was served.
var ErrExhausted = errors.New("perception: source exhausted")

// Source produces one Frame per tick.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Frame, error)

// Next calls f.
func (f SourceFunc) Next(ctx context.Context) (Frame, error) {
	return f(ctx)
}
