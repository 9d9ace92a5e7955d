package turn

import (
	"github.com/teslashibe/go-floor/pkg/observation"
	"github.com/teslashibe/go-floor/pkg/perception"
)

// Transformer fuses a raw perception frame into an observation vector.
// It fills every channel; the controller then overwrites the channels it
// owns (action_queued, running_action, time_since_last_activity).
type Transformer interface {
	Transform(f perception.Frame) observation.Vector
}

// PartnerTransformer reads gaze and gesture from one chosen partner, as the
// dyadic GANDALF model does.
type PartnerTransformer struct {
	Partner int
}

// Transform implements Transformer.
func (t PartnerTransformer) Transform(f perception.Frame) observation.Vector {
	looking := f.LookingAtSelf(t.Partner)
	presenting := f.IsGesturing(t.Partner)
	return fuse(f, looking, presenting)
}

// GroupTransformer treats "anyone" as the partner: someone looking at the
// robot, someone gesturing toward it.
type GroupTransformer struct{}

// Transform implements Transformer.
func (GroupTransformer) Transform(f perception.Frame) observation.Vector {
	return fuse(f, f.AnyoneLookingAtSelf(), f.AnyoneGesturing())
}

func fuse(f perception.Frame, looking, presenting bool) observation.Vector {
	voice := f.OtherSpeaking()

	v := observation.New()
	v.SetBool(observation.VoiceActivity, voice)
	v.SetBool(observation.ActionQueued, false)
	v.SetBool(observation.WantsTurn, voice || presenting)
	v.SetBool(observation.OtherAccepts, looking && presenting)
	v.SetInt(observation.TimeSinceLastActivity, 0)
	v.SetBool(observation.UtteranceComplete, !f.Utterance.Speaking)
	v.SetBool(observation.OtherLookingAtMe, looking)
	v.SetBool(observation.OtherPresenting, presenting)
	v.SetInt(observation.WhoTalking, int64(f.WhoSpeaking))
	v.SetBool(observation.RunningAction, false)
	return v
}

// TransformerFor returns the default transformer of a variant: one partner
// for single-party, the whole group for multi-party.
func TransformerFor(multiParty bool, partner int) Transformer {
	if multiParty {
		return GroupTransformer{}
	}
	return PartnerTransformer{Partner: partner}
}
