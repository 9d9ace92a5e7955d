package gandalf

import (
	"testing"

	"github.com/teslashibe/go-floor/pkg/fsm"
	"github.com/teslashibe/go-floor/pkg/observation"
)

// set describes the non-zero channels of a test vector.
type set map[observation.Channel]any

// vec builds a total vector: Zero() overlaid with fields.
func vec(fields set) observation.Vector {
	v := observation.Zero()
	for ch, val := range fields {
		switch x := val.(type) {
		case bool:
			v.SetBool(ch, x)
		case int:
			v.SetInt(ch, int64(x))
		}
	}
	return v
}

// machineAt builds a variant's engine parked in state.
func machineAt(t *testing.T, v Variant, state string, hooks TurnHooks) *fsm.Machine[observation.Vector] {
	t.Helper()
	specs, err := Rules(v, hooks)
	if err != nil {
		t.Fatal(err)
	}
	m, err := fsm.New(state, specs, fsm.WithValidator(observation.Vector.Validate))
	if err != nil {
		t.Fatalf("fsm.New: %v", err)
	}
	return m
}

func step(t *testing.T, m *fsm.Machine[observation.Vector], v observation.Vector) fsm.Result {
	t.Helper()
	res, err := m.Update(v)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	return res
}

type countingHooks struct {
	starts, ends int
}

func (h *countingHooks) StartTurn() { h.starts++ }
func (h *countingHooks) EndTurn()   { h.ends++ }

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in   string
		want Variant
		ok   bool
	}{
		{"single", SingleParty, true},
		{"GANDALF", SingleParty, true},
		{"multi", MultiParty, true},
		{" mp-gandalf ", MultiParty, true},
		{"mp", MultiParty, true},
		{"triadic", "", false},
	}
	for _, tc := range tests {
		got, err := ParseVariant(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("ParseVariant(%q) = %q, %v", tc.in, got, err)
		}
	}
	if SingleParty.ControllerClock() || !MultiParty.ControllerClock() {
		t.Error("only the multi-party variant uses the controller clock")
	}
}

func TestNewMachineInitialState(t *testing.T) {
	tests := []struct {
		v    Variant
		want string
	}{
		{SingleParty, StateIHave},
		{MultiParty, StateOtherHas},
	}
	for _, tc := range tests {
		v := tc.v
		m, err := NewMachine(v, nil)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		if m.Current() != tc.want || m.Initial() != tc.want || InitialState(v) != tc.want {
			t.Errorf("%s starts in %q, want %q", v, m.Current(), tc.want)
		}
		if len(m.States()) != 4 {
			t.Errorf("%s has %d states", v, len(m.States()))
		}
	}
	if _, err := NewMachine("triadic", nil); err == nil {
		t.Error("unknown variant should fail")
	}
}

func TestNewMachineRejectsPartialVectors(t *testing.T) {
	m, err := NewMachine(SingleParty, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.Update(observation.New())
	if !observation.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if m.Current() != StateIHave {
		t.Errorf("state moved to %q", m.Current())
	}
}

// Silent self with nothing queued yields to a partner who wants the floor.
func TestSingle_IHaveToOtherTaking(t *testing.T) {
	m := machineAt(t, SingleParty, StateIHave, nil)
	res := step(t, m, vec(set{observation.WantsTurn: true}))
	if res.To != StateOtherTaking {
		t.Fatalf("got %q, want %q", res.To, StateOtherTaking)
	}
}

func TestSingle_IHaveStaysWhileSelfHasWork(t *testing.T) {
	for name, fields := range map[string]set{
		"voice":  {observation.WantsTurn: true, observation.VoiceActivity: true},
		"queued": {observation.WantsTurn: true, observation.ActionQueued: true},
		"nobody": {},
	} {
		m := machineAt(t, SingleParty, StateIHave, nil)
		if res := step(t, m, vec(fields)); res.Changed {
			t.Errorf("%s: unexpected transition to %q", name, res.To)
		}
	}
}

// A rejected offer with work queued takes the floor back.
func TestSingle_OtherTakingToIHave(t *testing.T) {
	m := machineAt(t, SingleParty, StateOtherTaking, nil)
	res := step(t, m, vec(set{observation.OtherAccepts: false, observation.ActionQueued: true}))
	if res.To != StateIHave || res.Transition != "igive->ihave" {
		t.Fatalf("got %+v", res)
	}
}

func TestSingle_OtherTakingToOtherHas(t *testing.T) {
	m := machineAt(t, SingleParty, StateOtherTaking, nil)
	full := set{
		observation.OtherAccepts:     true,
		observation.WantsTurn:        true,
		observation.OtherLookingAtMe: true,
		observation.ActionQueued:     true,
	}
	if res := step(t, m, vec(full)); res.To != StateOtherHas {
		t.Fatalf("got %q", res.To)
	}

	// Accepting alone is not enough.
	m = machineAt(t, SingleParty, StateOtherTaking, nil)
	if res := step(t, m, vec(set{observation.OtherAccepts: true})); res.Changed {
		t.Errorf("partial acceptance moved to %q", res.To)
	}
}

// Long silence while the partner holds the floor hands it back.
func TestOtherHasToITake_Unconditional(t *testing.T) {
	for _, v := range []Variant{SingleParty, MultiParty} {
		m := machineAt(t, v, StateOtherHas, nil)
		fields := set{observation.TimeSinceLastActivity: 121}
		if v == MultiParty {
			// Keep the t>50 branch out of play.
			fields[observation.OtherPresenting] = true
		}
		res := step(t, m, vec(fields))
		if res.To != StateITake {
			t.Errorf("%s: got %q, want %q", v, res.To, StateITake)
		}
	}
}

func TestSingle_OtherHasThresholds(t *testing.T) {
	tests := []struct {
		name     string
		t        int
		complete bool
		want     bool
	}{
		{"70 complete", 70, true, false},
		{"71 complete", 71, true, true},
		{"71 incomplete", 71, false, false},
		{"120 silent", 120, false, false},
		{"121 silent", 121, false, true},
		// giving_turn is not modelled: 51 ms alone never yields.
		{"51 only", 51, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := machineAt(t, SingleParty, StateOtherHas, nil)
			res := step(t, m, vec(set{
				observation.TimeSinceLastActivity: tc.t,
				observation.UtteranceComplete:     tc.complete,
			}))
			if res.Changed != tc.want {
				t.Errorf("changed=%v, want %v", res.Changed, tc.want)
			}
		})
	}
}

func TestSingle_ITakeTransitions(t *testing.T) {
	m := machineAt(t, SingleParty, StateITake, nil)
	res := step(t, m, vec(set{observation.OtherLookingAtMe: true}))
	if res.To != StateIHave {
		t.Fatalf("looking, not presenting, not wanting: got %q", res.To)
	}

	m = machineAt(t, SingleParty, StateITake, nil)
	if res := step(t, m, vec(set{observation.VoiceActivity: true, observation.TimeSinceLastActivity: 170})); res.Changed {
		t.Errorf("t=170 must not fire, moved to %q", res.To)
	}
	res = step(t, m, vec(set{observation.VoiceActivity: true, observation.TimeSinceLastActivity: 171}))
	if res.To != StateOtherHas {
		t.Errorf("t=171 with voice: got %q", res.To)
	}
}

func TestSingle_ITakePriority(t *testing.T) {
	// Both rows hold; itake->ihave is listed first.
	m := machineAt(t, SingleParty, StateITake, nil)
	res := step(t, m, vec(set{
		observation.OtherLookingAtMe:      true,
		observation.VoiceActivity:         true,
		observation.TimeSinceLastActivity: 500,
	}))
	if res.Transition != "itake->ihave" {
		t.Errorf("got %q, want itake->ihave", res.Transition)
	}
}

func TestMulti_IHavePolarity(t *testing.T) {
	tests := []struct {
		name            string
		queued, running bool
		want            bool
	}{
		{"nothing queued, nothing running", false, false, true},
		{"queued", true, false, false},
		{"running", false, true, false},
	}
	for _, tc := range tests {
		m := machineAt(t, MultiParty, StateIHave, nil)
		res := step(t, m, vec(set{
			observation.ActionQueued:  tc.queued,
			observation.RunningAction: tc.running,
		}))
		if res.Changed != tc.want {
			t.Errorf("%s: changed=%v, want %v", tc.name, res.Changed, tc.want)
		}
	}
}

func TestMulti_OtherTaking(t *testing.T) {
	m := machineAt(t, MultiParty, StateOtherTaking, nil)
	if res := step(t, m, vec(set{observation.ActionQueued: true})); res.To != StateIHave {
		t.Errorf("rejected offer with queued action: got %q", res.To)
	}

	m = machineAt(t, MultiParty, StateOtherTaking, nil)
	if res := step(t, m, vec(set{observation.VoiceActivity: true, observation.OtherAccepts: true})); res.To != StateOtherHas {
		t.Errorf("speaking claims the floor: got %q", res.To)
	}

	m = machineAt(t, MultiParty, StateOtherTaking, nil)
	if res := step(t, m, vec(set{observation.WantsTurn: true})); res.To != StateOtherHas {
		t.Errorf("signalling claims the floor: got %q", res.To)
	}

	m = machineAt(t, MultiParty, StateOtherTaking, nil)
	if res := step(t, m, vec(set{})); res.Changed {
		t.Errorf("nothing happening moved to %q", res.To)
	}
}

func TestMulti_OtherHasYieldBoundary(t *testing.T) {
	m := machineAt(t, MultiParty, StateOtherHas, nil)
	if res := step(t, m, vec(set{observation.TimeSinceLastActivity: 50})); res.Changed {
		t.Fatalf("t=50 fired the t>50 branch")
	}
	if res := step(t, m, vec(set{observation.TimeSinceLastActivity: 51})); res.To != StateITake {
		t.Fatalf("t=51 should fire, got %q", res.To)
	}
}

func TestMulti_OtherHasUtteranceBranch(t *testing.T) {
	m := machineAt(t, MultiParty, StateOtherHas, nil)
	base := set{observation.OtherPresenting: true, observation.UtteranceComplete: true}

	base[observation.TimeSinceLastActivity] = 70
	if res := step(t, m, vec(base)); res.Changed {
		t.Fatal("t=70 fired the t>70 branch")
	}
	base[observation.TimeSinceLastActivity] = 71
	if res := step(t, m, vec(base)); res.To != StateITake {
		t.Fatal("t=71 with a complete utterance should fire")
	}
}

func TestMulti_ITakeVoiceBranchSubsumesTimedBranch(t *testing.T) {
	// Voice activity alone moves to Other-has at any elapsed time, so the
	// t>170 branch can never be the deciding one.
	for _, elapsed := range []int{0, 170, 171, 5000} {
		m := machineAt(t, MultiParty, StateITake, nil)
		res := step(t, m, vec(set{
			observation.VoiceActivity:         true,
			observation.TimeSinceLastActivity: elapsed,
		}))
		if res.To != StateOtherHas {
			t.Errorf("t=%d: got %q", elapsed, res.To)
		}
	}
}

func TestMulti_ITakeToIHave(t *testing.T) {
	m := machineAt(t, MultiParty, StateITake, nil)
	if res := step(t, m, vec(set{observation.OtherLookingAtMe: true})); res.Changed {
		t.Errorf("no queued action should stay, moved to %q", res.To)
	}
	if res := step(t, m, vec(set{observation.OtherLookingAtMe: true, observation.ActionQueued: true})); res.To != StateIHave {
		t.Errorf("got %q, want %q", res.To, StateIHave)
	}
}

func TestTurnHooksOnlyOnIHave(t *testing.T) {
	for _, v := range []Variant{SingleParty, MultiParty} {
		h := &countingHooks{}
		m := machineAt(t, v, StateITake, h)

		// I-take -> Other-has: no hooks involved.
		step(t, m, vec(set{observation.VoiceActivity: true, observation.TimeSinceLastActivity: 500}))
		if h.starts != 0 || h.ends != 0 {
			t.Fatalf("%s: hooks fired off I-have: %+v", v, h)
		}

		// Other-has -> I-take -> I-have: StartTurn once.
		step(t, m, vec(set{observation.TimeSinceLastActivity: 500, observation.OtherPresenting: true}))
		step(t, m, vec(set{observation.OtherLookingAtMe: true, observation.ActionQueued: v == MultiParty}))
		if m.Current() != StateIHave || h.starts != 1 || h.ends != 0 {
			t.Fatalf("%s: at %q hooks %+v", v, m.Current(), h)
		}

		// Leave I-have: EndTurn once.
		step(t, m, vec(set{observation.WantsTurn: true}))
		if m.Current() != StateOtherTaking || h.ends != 1 || h.starts != 1 {
			t.Fatalf("%s: at %q hooks %+v", v, m.Current(), h)
		}
	}
}
