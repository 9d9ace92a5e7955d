// Package gandalf holds the GANDALF turn-taking rule sets.
//
// Both variants model the floor as a four-state cycle seen from the robot's
// side: I have the turn, someone else is taking it, someone else has it, and
// I am taking it back. They differ only in their predicates:
//
//   - SingleParty follows the original dyadic GANDALF model against one
//     chosen conversational partner.
//   - MultiParty (MP-GANDALF) reads "anyone" in place of "the partner" and
//     uses stricter, action-driven predicates.
//
// Predicate order inside each state is part of the rule set: the engine
// takes the first rule that holds.
package gandalf

import (
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-floor/pkg/fsm"
	"github.com/teslashibe/go-floor/pkg/observation"
)

// State names, shared by both variants.
const (
	StateIHave       = "I have turn"
	StateOtherTaking = "Someone else is taking turn"
	StateOtherHas    = "Someone else has turn"
	StateITake       = "I'm taking turn"
)

// Silence thresholds on time_since_last_activity. Comparisons are strict.
const (
	YieldSilence     = 50 * time.Millisecond
	UtteranceSilence = 70 * time.Millisecond
	FloorSilence     = 120 * time.Millisecond
	ResumeSilence    = 170 * time.Millisecond
)

// Variant selects a rule set.
type Variant string

const (
	// SingleParty is the dyadic GANDALF rule set.
	SingleParty Variant = "single"

	// MultiParty is the MP-GANDALF rule set.
	MultiParty Variant = "multi"
)

// String returns the variant name.
func (v Variant) String() string {
	return string(v)
}

// ControllerClock reports whether the controller, rather than the
// perception producer, owns time_since_last_activity for this variant.
func (v Variant) ControllerClock() bool {
	return v == MultiParty
}

// ParseVariant accepts "single"/"gandalf" and "multi"/"mp"/"mp-gandalf".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "gandalf", "single-party":
		return SingleParty, nil
	case "multi", "mp", "mp-gandalf", "multi-party":
		return MultiParty, nil
	default:
		return "", fmt.Errorf("gandalf: unknown variant %q", s)
	}
}

// TurnHooks receives the lifecycle of the robot's own turn.
// StartTurn runs when "I have turn" is entered, EndTurn when it is left.
type TurnHooks interface {
	StartTurn()
	EndTurn()
}

// turnState adapts TurnHooks to the fsm hook interfaces.
type turnState struct {
	hooks TurnHooks
}

func (s turnState) OnEnter() { s.hooks.StartTurn() }
func (s turnState) OnExit()  { s.hooks.EndTurn() }

func hooksFor(h TurnHooks) any {
	if h == nil {
		return nil
	}
	return turnState{hooks: h}
}

// Rules returns the state table of variant v. hooks may be nil.
func Rules(v Variant, hooks TurnHooks) ([]fsm.StateSpec[observation.Vector], error) {
	switch v {
	case SingleParty:
		return SinglePartyRules(hooks), nil
	case MultiParty:
		return MultiPartyRules(hooks), nil
	default:
		return nil, fmt.Errorf("gandalf: unknown variant %q", string(v))
	}
}

// InitialState returns the state variant v boots in. The single-party
// engine starts holding the floor; the multi-party engine starts listening,
// with someone else holding it.
func InitialState(v Variant) string {
	if v == MultiParty {
		return StateOtherHas
	}
	return StateIHave
}

// NewMachine builds a validated engine for variant v starting in
// InitialState(v). Observation vectors are schema-checked before any
// predicate runs.
func NewMachine(v Variant, hooks TurnHooks, opts ...fsm.Option[observation.Vector]) (*fsm.Machine[observation.Vector], error) {
	specs, err := Rules(v, hooks)
	if err != nil {
		return nil, err
	}
	base := []fsm.Option[observation.Vector]{
		fsm.WithName[observation.Vector](string(v)),
		fsm.WithValidator(observation.Vector.Validate),
	}
	return fsm.New(InitialState(v), specs, append(base, opts...)...)
}

// elapsed reads time_since_last_activity as a duration.
func elapsed(o observation.Vector) time.Duration {
	return time.Duration(o.Int(observation.TimeSinceLastActivity)) * time.Millisecond
}
