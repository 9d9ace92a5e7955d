package fsm

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

// obs is a minimal observation for engine tests.
type obs struct {
	a, b  bool
	valid bool
}

func always(obs) bool { return true }
func isA(o obs) bool  { return o.a }
func isB(o obs) bool  { return o.b }

// recorder collects hook calls in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) hooks(state string) HookFuncs {
	return HookFuncs{
		Enter: func() { r.add("enter:" + state) },
		Exit:  func() { r.add("exit:" + state) },
	}
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func mustNew(t *testing.T, initial string, specs []StateSpec[obs], opts ...Option[obs]) *Machine[obs] {
	t.Helper()
	m, err := New(initial, specs, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestFirstMatchWins(t *testing.T) {
	m := mustNew(t, "start", []StateSpec[obs]{
		{Name: "start", Transitions: []TransitionSpec[obs]{
			{Name: "first", When: isA, To: "left"},
			{Name: "second", When: isA, To: "right"},
		}},
		{Name: "left", Transitions: []TransitionSpec[obs]{{When: always, To: "start"}}},
		{Name: "right", Transitions: []TransitionSpec[obs]{{When: always, To: "start"}}},
	})

	res, err := m.Update(obs{a: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.To != "left" || res.Transition != "first" || !res.Changed {
		t.Errorf("got %+v, want transition 'first' to left", res)
	}
}

func TestSecondPredicateNotEvaluatedAfterMatch(t *testing.T) {
	evaluated := 0
	counting := func(obs) bool { evaluated++; return true }

	m := mustNew(t, "s", []StateSpec[obs]{
		{Name: "s", Transitions: []TransitionSpec[obs]{
			{When: always, To: "t"},
			{When: counting, To: "t"},
		}},
		{Name: "t"},
	})
	if _, err := m.Update(obs{}); err != nil {
		t.Fatal(err)
	}
	if evaluated != 0 {
		t.Errorf("second predicate evaluated %d times", evaluated)
	}
}

func TestHooksFireOnceInOrder(t *testing.T) {
	rec := &recorder{}
	m := mustNew(t, "one", []StateSpec[obs]{
		{Name: "one", Hooks: rec.hooks("one"), Transitions: []TransitionSpec[obs]{{When: isA, To: "two"}}},
		{Name: "two", Hooks: rec.hooks("two"), Transitions: []TransitionSpec[obs]{{When: isB, To: "one"}}},
	})

	if _, err := m.Update(obs{a: true}); err != nil {
		t.Fatal(err)
	}
	got := rec.get()
	want := []string{"exit:one", "enter:two"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("hooks = %v, want %v", got, want)
	}

	// Non-transition tick: no hooks.
	if _, err := m.Update(obs{a: true}); err != nil {
		t.Fatal(err)
	}
	if len(rec.get()) != 2 {
		t.Errorf("hooks fired on a non-transition tick: %v", rec.get())
	}
}

func TestSelfLoopFiresNoHooks(t *testing.T) {
	rec := &recorder{}
	m := mustNew(t, "only", []StateSpec[obs]{
		{Name: "only", Hooks: rec.hooks("only"), Transitions: []TransitionSpec[obs]{{Name: "loop", When: always, To: "only"}}},
	})
	res, err := m.Update(obs{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed || res.Transition != "loop" {
		t.Errorf("self loop result %+v", res)
	}
	if len(rec.get()) != 0 {
		t.Errorf("self loop fired hooks: %v", rec.get())
	}
}

func TestAtMostOneTransitionPerUpdate(t *testing.T) {
	m := mustNew(t, "a", []StateSpec[obs]{
		{Name: "a", Transitions: []TransitionSpec[obs]{{When: always, To: "b"}}},
		{Name: "b", Transitions: []TransitionSpec[obs]{{When: always, To: "c"}}},
		{Name: "c", Transitions: []TransitionSpec[obs]{{When: always, To: "a"}}},
	})
	for _, want := range []string{"b", "c", "a", "b"} {
		res, err := m.Update(obs{})
		if err != nil {
			t.Fatal(err)
		}
		if res.To != want {
			t.Fatalf("moved to %s, want %s", res.To, want)
		}
	}
}

func TestDeterminism(t *testing.T) {
	specs := []StateSpec[obs]{
		{Name: "x", Transitions: []TransitionSpec[obs]{{When: isB, To: "y"}}},
		{Name: "y", Transitions: []TransitionSpec[obs]{{When: isA, To: "x"}}},
	}
	for i := 0; i < 20; i++ {
		m := mustNew(t, "x", specs)
		res, _ := m.Update(obs{b: true})
		if res.To != "y" {
			t.Fatalf("run %d: got %s", i, res.To)
		}
	}
}

func TestNoMatchIsIdempotent(t *testing.T) {
	rec := &recorder{}
	m := mustNew(t, "x", []StateSpec[obs]{
		{Name: "x", Hooks: rec.hooks("x"), Transitions: []TransitionSpec[obs]{{When: isA, To: "y"}}},
		{Name: "y", Transitions: []TransitionSpec[obs]{{When: isA, To: "x"}}},
	})
	for i := 0; i < 1000; i++ {
		res, err := m.Update(obs{})
		if err != nil {
			t.Fatal(err)
		}
		if res.Changed || m.Current() != "x" {
			t.Fatalf("tick %d changed state to %s", i, m.Current())
		}
	}
	if len(rec.get()) != 0 {
		t.Errorf("hooks fired: %v", rec.get())
	}
}

func TestValidatorRejectsBeforePredicates(t *testing.T) {
	evaluated := 0
	errBad := errors.New("bad observation")
	m := mustNew(t, "x", []StateSpec[obs]{
		{Name: "x", Transitions: []TransitionSpec[obs]{{When: func(obs) bool { evaluated++; return true }, To: "y"}}},
		{Name: "y"},
	}, WithValidator(func(o obs) error {
		if !o.valid {
			return errBad
		}
		return nil
	}))

	res, err := m.Update(obs{})
	if !errors.Is(err, errBad) {
		t.Fatalf("expected validator error, got %v", err)
	}
	if res.Changed || m.Current() != "x" || evaluated != 0 {
		t.Errorf("invalid observation leaked: res=%+v evaluated=%d", res, evaluated)
	}

	if res, _ := m.Update(obs{valid: true}); res.To != "y" {
		t.Errorf("valid observation should transition, got %+v", res)
	}
}

func TestReentrantUpdateFromHook(t *testing.T) {
	var m *Machine[obs]
	var inner error
	hooks := HookFuncs{Enter: func() { _, inner = m.Update(obs{}) }}

	var err error
	m, err = New("x", []StateSpec[obs]{
		{Name: "x", Transitions: []TransitionSpec[obs]{{When: always, To: "y"}}},
		{Name: "y", Hooks: hooks, Transitions: []TransitionSpec[obs]{{When: always, To: "x"}}},
	}, WithName[obs]("test"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Update(obs{}); err != nil {
		t.Fatalf("outer update: %v", err)
	}
	if !IsConcurrency(inner) {
		t.Fatalf("inner update should be rejected, got %v", inner)
	}
	var cv *ConcurrencyViolation
	if !errors.As(inner, &cv) || cv.Machine != "test" {
		t.Errorf("unexpected violation %v", inner)
	}
	if m.Current() != "y" {
		t.Errorf("reentrant update must not move the machine, at %s", m.Current())
	}
}

func TestConstructionErrors(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		specs   []StateSpec[obs]
		fatal   error
	}{
		{"no states", "x", nil, ErrDefinition},
		{"unnamed", "x", []StateSpec[obs]{{Name: ""}}, ErrDefinition},
		{"duplicate", "x", []StateSpec[obs]{{Name: "x"}, {Name: "x"}}, ErrDefinition},
		{"unknown initial", "z", []StateSpec[obs]{{Name: "x"}}, ErrDefinition},
		{"nil predicate", "x", []StateSpec[obs]{
			{Name: "x", Transitions: []TransitionSpec[obs]{{To: "x"}}},
		}, ErrDefinition},
		{"dangling target", "x", []StateSpec[obs]{
			{Name: "x", Transitions: []TransitionSpec[obs]{{When: always, To: "nowhere"}}},
		}, ErrDefinition},
		{"unreachable", "x", []StateSpec[obs]{
			{Name: "x", Transitions: []TransitionSpec[obs]{{When: always, To: "y"}}},
			{Name: "y"},
			{Name: "island", Transitions: []TransitionSpec[obs]{{When: always, To: "x"}}},
		}, ErrUnreachableState},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := New(tc.initial, tc.specs)
			if m != nil {
				t.Error("expected nil machine")
			}
			if !errors.Is(err, tc.fatal) {
				t.Fatalf("got %v, want %v", err, tc.fatal)
			}
			if !IsFatal(err) {
				t.Errorf("construction errors must be fatal: %v", err)
			}
		})
	}
}

func TestReset(t *testing.T) {
	rec := &recorder{}
	m := mustNew(t, "x", []StateSpec[obs]{
		{Name: "x", Hooks: rec.hooks("x"), Transitions: []TransitionSpec[obs]{{When: always, To: "y"}}},
		{Name: "y", Hooks: rec.hooks("y"), Transitions: []TransitionSpec[obs]{{When: isA, To: "x"}}},
	})
	m.Update(obs{})
	calls := len(rec.get())
	if err := m.Reset(); err != nil {
		t.Fatal(err)
	}
	if m.Current() != "x" {
		t.Errorf("after Reset at %s", m.Current())
	}
	if len(rec.get()) != calls {
		t.Error("Reset must not run hooks")
	}
}

func TestEdgesAndDOT(t *testing.T) {
	m := mustNew(t, "x", []StateSpec[obs]{
		{Name: "x", Transitions: []TransitionSpec[obs]{
			{Name: "x->y", When: isA, To: "y"},
			{When: isB, To: "x"},
		}},
		{Name: "y", Transitions: []TransitionSpec[obs]{{Name: "back", When: isA, To: "x"}}},
	}, WithName[obs]("demo"))

	edges := m.Edges()
	if len(edges) != 3 {
		t.Fatalf("got %d edges", len(edges))
	}
	if edges[1].Transition != "x->x" || edges[1].Priority != 1 {
		t.Errorf("default rule name / priority wrong: %+v", edges[1])
	}

	var sb strings.Builder
	if err := m.WriteDOT(&sb); err != nil {
		t.Fatal(err)
	}
	dot := sb.String()
	for _, want := range []string{`digraph "demo"`, `"x" [shape=doublecircle]`, `"y" -> "x" [label="0: back"]`} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if got := m.States(); len(got) != 2 || got[0] != "x" {
		t.Errorf("States() = %v", got)
	}
}
