package fsm

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fsm package.
var (
	// ErrDefinition indicates a malformed state table. Fatal at startup.
	ErrDefinition = errors.New("fsm: invalid state table")

	// ErrUnreachableState indicates the machine is, or could end up, in a
	// state the table does not allow. It signals a rule-set construction bug.
	ErrUnreachableState = errors.New("fsm: unreachable state")

	// ErrConcurrency indicates a reentrant or concurrent Update.
	ErrConcurrency = errors.New("fsm: concurrent update")
)

// DefinitionError reports a construction-time problem with a state table.
type DefinitionError struct {
	// State is the state the problem was found in (may be empty).
	State string

	// Reason describes the problem.
	Reason string
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("fsm: invalid state table: %s", e.Reason)
	}
	return fmt.Sprintf("fsm: invalid state table: state %q: %s", e.State, e.Reason)
}

// Unwrap lets errors.Is match ErrDefinition.
func (e *DefinitionError) Unwrap() error {
	return ErrDefinition
}

// UnreachableStateError reports a state that cannot be reached from the
// initial state, or a current-state reference outside the table.
type UnreachableStateError struct {
	State  string
	Reason string
}

// Error implements the error interface.
func (e *UnreachableStateError) Error() string {
	return fmt.Sprintf("fsm: unreachable state %q: %s", e.State, e.Reason)
}

// Unwrap lets errors.Is match ErrUnreachableState.
func (e *UnreachableStateError) Unwrap() error {
	return ErrUnreachableState
}

// ConcurrencyViolation reports an Update that overlapped another one,
// including one issued from inside an enter or exit hook.
type ConcurrencyViolation struct {
	// Machine is the name of the machine, if configured.
	Machine string

	// Op is the operation that was rejected.
	Op string
}

// Error implements the error interface.
func (e *ConcurrencyViolation) Error() string {
	if e.Machine == "" {
		return fmt.Sprintf("fsm: concurrent %s rejected", e.Op)
	}
	return fmt.Sprintf("fsm: %s: concurrent %s rejected", e.Machine, e.Op)
}

// Unwrap lets errors.Is match ErrConcurrency.
func (e *ConcurrencyViolation) Unwrap() error {
	return ErrConcurrency
}

// IsFatal returns true for errors that indicate a broken rule set rather
// than bad input.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDefinition) || errors.Is(err, ErrUnreachableState)
}

// IsConcurrency returns true if the error reports overlapping updates.
func IsConcurrency(err error) bool {
	return errors.Is(err, ErrConcurrency)
}
