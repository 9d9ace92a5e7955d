package fsm

// Predicate decides whether a transition fires for one observation.
// Predicates must be pure: same input, same answer.
type Predicate[O any] func(O) bool

// TransitionSpec is one row of a state's transition table.
type TransitionSpec[O any] struct {
	// Name labels the rule in logs and graph exports (e.g. "ihave->igive").
	Name string

	// When is evaluated against the observation.
	When Predicate[O]

	// To names the target state.
	To string
}

// StateSpec declares one state. Transitions are evaluated in slice order and
// the first match wins, so order is part of the rule set.
type StateSpec[O any] struct {
	Name string

	// Hooks optionally implements Enterer and/or Exiter.
	Hooks any

	Transitions []TransitionSpec[O]
}

// Enterer is implemented by state hooks that run when the state becomes active.
type Enterer interface {
	OnEnter()
}

// Exiter is implemented by state hooks that run when the state is left.
type Exiter interface {
	OnExit()
}

// HookFuncs adapts plain functions to Enterer and Exiter. Nil fields are no-ops.
type HookFuncs struct {
	Enter func()
	Exit  func()
}

// OnEnter calls Enter if set.
func (h HookFuncs) OnEnter() {
	if h.Enter != nil {
		h.Enter()
	}
}

// OnExit calls Exit if set.
func (h HookFuncs) OnExit() {
	if h.Exit != nil {
		h.Exit()
	}
}

type state[O any] struct {
	name        string
	enter       Enterer
	exit        Exiter
	transitions []transition[O]
}

type transition[O any] struct {
	name string
	when Predicate[O]
	to   int
}
