// Package fsm provides a small, rule-agnostic finite state machine.
//
// A Machine holds one active state and, on every Update, scans that state's
// transitions in declared order. The first predicate that holds selects the
// next state; later rows are never evaluated. When the state actually
// changes, the old state's exit hook runs, then the new state's enter hook,
// each exactly once, before Update returns.
//
// State tables are validated once in New and never change afterwards; only
// the current-state pointer moves.
package fsm

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Result describes the outcome of one Update.
type Result struct {
	// From is the state active before the update.
	From string

	// To is the state active after the update.
	To string

	// Transition names the rule that matched, if any.
	Transition string

	// Changed is true when From != To and hooks fired.
	Changed bool
}

// Option configures a Machine.
type Option[O any] func(*Machine[O])

// WithValidator rejects observations before any predicate sees them.
func WithValidator[O any](fn func(O) error) Option[O] {
	return func(m *Machine[O]) {
		m.validate = fn
	}
}

// WithLogger traces predicate evaluation at debug level.
func WithLogger[O any](logger *slog.Logger) Option[O] {
	return func(m *Machine[O]) {
		m.logger = logger
	}
}

// WithName labels the machine in logs and errors.
func WithName[O any](name string) Option[O] {
	return func(m *Machine[O]) {
		m.name = name
	}
}

// Machine is a first-match-wins state machine over observations of type O.
// Update must not be called concurrently; overlapping calls are rejected
// with a *ConcurrencyViolation. Current may be read from any goroutine.
type Machine[O any] struct {
	name     string
	states   []state[O]
	index    map[string]int
	initial  int
	validate func(O) error
	logger   *slog.Logger

	cur  atomic.Int32
	busy atomic.Bool
}

// New builds a machine starting in initial. It fails with a *DefinitionError
// for empty or duplicate names, nil predicates, an unknown initial state or a
// transition to an unknown state, and with an *UnreachableStateError when a
// declared state cannot be reached from initial.
func New[O any](initial string, specs []StateSpec[O], opts ...Option[O]) (*Machine[O], error) {
	m := &Machine[O]{
		states: make([]state[O], len(specs)),
		index:  make(map[string]int, len(specs)),
	}
	for _, opt := range opts {
		opt(m)
	}

	if len(specs) == 0 {
		return nil, &DefinitionError{Reason: "no states"}
	}

	for i, spec := range specs {
		if spec.Name == "" {
			return nil, &DefinitionError{Reason: fmt.Sprintf("state %d has no name", i)}
		}
		if _, dup := m.index[spec.Name]; dup {
			return nil, &DefinitionError{State: spec.Name, Reason: "duplicate state name"}
		}
		m.index[spec.Name] = i
	}

	start, ok := m.index[initial]
	if !ok {
		return nil, &DefinitionError{State: initial, Reason: "initial state is not declared"}
	}
	m.initial = start

	for i, spec := range specs {
		st := state[O]{
			name:        spec.Name,
			transitions: make([]transition[O], 0, len(spec.Transitions)),
		}
		if e, ok := spec.Hooks.(Enterer); ok {
			st.enter = e
		}
		if x, ok := spec.Hooks.(Exiter); ok {
			st.exit = x
		}
		for j, ts := range spec.Transitions {
			if ts.When == nil {
				return nil, &DefinitionError{State: spec.Name, Reason: fmt.Sprintf("transition %d (%s) has no predicate", j, ts.Name)}
			}
			to, ok := m.index[ts.To]
			if !ok {
				return nil, &DefinitionError{State: spec.Name, Reason: fmt.Sprintf("transition %d (%s) targets unknown state %q", j, ts.Name, ts.To)}
			}
			name := ts.Name
			if name == "" {
				name = spec.Name + "->" + ts.To
			}
			st.transitions = append(st.transitions, transition[O]{name: name, when: ts.When, to: to})
		}
		m.states[i] = st
	}

	if err := m.checkReachable(); err != nil {
		return nil, err
	}

	m.cur.Store(int32(start))
	return m, nil
}

// checkReachable walks the transition graph from the initial state.
func (m *Machine[O]) checkReachable() error {
	seen := make([]bool, len(m.states))
	queue := []int{m.initial}
	seen[m.initial] = true
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, t := range m.states[i].transitions {
			if !seen[t.to] {
				seen[t.to] = true
				queue = append(queue, t.to)
			}
		}
	}
	for i, ok := range seen {
		if !ok {
			return &UnreachableStateError{
				State:  m.states[i].name,
				Reason: fmt.Sprintf("no path from initial state %q", m.states[m.initial].name),
			}
		}
	}
	return nil
}

// Update evaluates o against the active state's transitions.
// On a validator error the state is unchanged and no predicate runs.
func (m *Machine[O]) Update(o O) (Result, error) {
	if !m.busy.CompareAndSwap(false, true) {
		cur := m.Current()
		return Result{From: cur, To: cur}, &ConcurrencyViolation{Machine: m.name, Op: "update"}
	}
	defer m.busy.Store(false)

	idx := int(m.cur.Load())
	if idx < 0 || idx >= len(m.states) {
		return Result{}, &UnreachableStateError{
			State:  fmt.Sprintf("#%d", idx),
			Reason: "current state index outside the table",
		}
	}
	from := &m.states[idx]
	res := Result{From: from.name, To: from.name}

	if m.validate != nil {
		if err := m.validate(o); err != nil {
			return res, err
		}
	}

	for _, t := range from.transitions {
		if !t.when(o) {
			m.trace("transition rejected", from.name, t)
			continue
		}
		m.trace("transition accepted", from.name, t)
		res.Transition = t.name
		if t.to == idx {
			return res, nil
		}

		to := &m.states[t.to]
		m.cur.Store(int32(t.to))
		res.To = to.name
		res.Changed = true

		if from.exit != nil {
			from.exit.OnExit()
		}
		if to.enter != nil {
			to.enter.OnEnter()
		}
		return res, nil
	}

	if m.logger != nil {
		m.logger.Debug("staying in state", "machine", m.name, "state", from.name)
	}
	return res, nil
}

func (m *Machine[O]) trace(msg, from string, t transition[O]) {
	if m.logger == nil {
		return
	}
	m.logger.Debug(msg,
		"machine", m.name,
		"from", from,
		"to", m.states[t.to].name,
		"rule", t.name,
	)
}

// Current returns the name of the active state.
func (m *Machine[O]) Current() string {
	idx := int(m.cur.Load())
	if idx < 0 || idx >= len(m.states) {
		return ""
	}
	return m.states[idx].name
}

// Initial returns the name of the initial state.
func (m *Machine[O]) Initial() string {
	return m.states[m.initial].name
}

// Name returns the configured machine name.
func (m *Machine[O]) Name() string {
	return m.name
}

// States returns all state names in declaration order.
func (m *Machine[O]) States() []string {
	out := make([]string, len(m.states))
	for i, s := range m.states {
		out[i] = s.name
	}
	return out
}

// Reset returns the machine to its initial state without running hooks.
func (m *Machine[O]) Reset() error {
	if !m.busy.CompareAndSwap(false, true) {
		return &ConcurrencyViolation{Machine: m.name, Op: "reset"}
	}
	defer m.busy.Store(false)
	m.cur.Store(int32(m.initial))
	return nil
}
