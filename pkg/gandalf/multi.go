package gandalf

import (
	"github.com/teslashibe/go-floor/pkg/fsm"
	o "github.com/teslashibe/go-floor/pkg/observation"
)

// MultiPartyRules returns the MP-GANDALF table.
func MultiPartyRules(hooks TurnHooks) []fsm.StateSpec[o.Vector] {
	return []fsm.StateSpec[o.Vector]{
		{
			Name:  StateIHave,
			Hooks: hooksFor(hooks),
			Transitions: []fsm.TransitionSpec[o.Vector]{
				{Name: "ihave->igive", When: mpIHaveToIGive, To: StateOtherTaking},
			},
		},
		{
			Name: StateOtherTaking,
			Transitions: []fsm.TransitionSpec[o.Vector]{
				{Name: "igive->ihave", When: mpIGiveToIHave, To: StateIHave},
				{Name: "igive->otherhas", When: mpIGiveToOtherHas, To: StateOtherHas},
			},
		},
		{
			Name: StateOtherHas,
			Transitions: []fsm.TransitionSpec[o.Vector]{
				{Name: "otherhas->itake", When: mpOtherHasToITake, To: StateITake},
			},
		},
		{
			Name: StateITake,
			Transitions: []fsm.TransitionSpec[o.Vector]{
				{Name: "itake->ihave", When: mpITakeToIHave, To: StateIHave},
				{Name: "itake->otherhas", When: mpITakeToOtherHas, To: StateOtherHas},
			},
		},
	}
}

// Fires when action_queued is false and nothing is running. The rule set
// has always read action_queued == 0 as its trigger; the polarity is kept
// as-is pending product clarification.
func mpIHaveToIGive(v o.Vector) bool {
	return !v.Bool(o.ActionQueued) && !v.Bool(o.RunningAction)
}

// Offer rejected but self still has something to say.
func mpIGiveToIHave(v o.Vector) bool {
	return !v.Bool(o.OtherAccepts) && v.Bool(o.ActionQueued)
}

func mpIGiveToOtherHas(v o.Vector) bool {
	return v.Bool(o.WantsTurn) || v.Bool(o.VoiceActivity)
}

func mpOtherHasToITake(v o.Vector) bool {
	t := elapsed(v)
	switch {
	case t > YieldSilence && !v.Bool(o.OtherPresenting):
		return true
	case t > UtteranceSilence && v.Bool(o.UtteranceComplete):
		return true
	default:
		return t > FloorSilence
	}
}

func mpITakeToIHave(v o.Vector) bool {
	return v.Bool(o.ActionQueued) && v.Bool(o.OtherLookingAtMe)
}

// The timed branch is subsumed by the bare voice-activity branch.
func mpITakeToOtherHas(v o.Vector) bool {
	if elapsed(v) > ResumeSilence && v.Bool(o.VoiceActivity) {
		return true
	}
	return v.Bool(o.VoiceActivity)
}
