package gandalf

import (
	"github.com/teslashibe/go-floor/pkg/fsm"
	o "github.com/teslashibe/go-floor/pkg/observation"
)

// SinglePartyRules returns the dyadic GANDALF table.
//
// The original "other has → I take" rule also had a (t>50 && giving_turn)
// branch. No channel carries giving_turn, so the branch is left out.
func SinglePartyRules(hooks TurnHooks) []fsm.StateSpec[o.Vector] {
	return []fsm.StateSpec[o.Vector]{
		{
			Name:  StateIHave,
			Hooks: hooksFor(hooks),
			Transitions: []fsm.TransitionSpec[o.Vector]{
				{Name: "ihave->igive", When: spIHaveToIGive, To: StateOtherTaking},
			},
		},
		{
			Name: StateOtherTaking,
			Transitions: []fsm.TransitionSpec[o.Vector]{
				{Name: "igive->ihave", When: spIGiveToIHave, To: StateIHave},
				{Name: "igive->otherhas", When: spIGiveToOtherHas, To: StateOtherHas},
			},
		},
		{
			Name: StateOtherHas,
			Transitions: []fsm.TransitionSpec[o.Vector]{
				{Name: "otherhas->itake", When: spOtherHasToITake, To: StateITake},
			},
		},
		{
			Name: StateITake,
			Transitions: []fsm.TransitionSpec[o.Vector]{
				{Name: "itake->ihave", When: spITakeToIHave, To: StateIHave},
				{Name: "itake->otherhas", When: spITakeToOtherHas, To: StateOtherHas},
			},
		},
	}
}

// Self is silent with nothing queued while someone else wants the floor.
func spIHaveToIGive(v o.Vector) bool {
	return !v.Bool(o.VoiceActivity) && !v.Bool(o.ActionQueued) && v.Bool(o.WantsTurn)
}

// The other party withdrew acceptance of the offer.
func spIGiveToIHave(v o.Vector) bool {
	return !v.Bool(o.OtherAccepts)
}

func spIGiveToOtherHas(v o.Vector) bool {
	return v.Bool(o.OtherAccepts) &&
		v.Bool(o.WantsTurn) &&
		v.Bool(o.OtherLookingAtMe) &&
		v.Bool(o.ActionQueued)
}

func spOtherHasToITake(v o.Vector) bool {
	t := elapsed(v)
	return (t > UtteranceSilence && v.Bool(o.UtteranceComplete)) || t > FloorSilence
}

func spITakeToIHave(v o.Vector) bool {
	return v.Bool(o.OtherLookingAtMe) && !v.Bool(o.OtherPresenting) && !v.Bool(o.WantsTurn)
}

// Someone resumed talking after a long silence.
func spITakeToOtherHas(v o.Vector) bool {
	return elapsed(v) > ResumeSilence && v.Bool(o.VoiceActivity)
}
