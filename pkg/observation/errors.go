package observation

import (
	"errors"
	"fmt"
)

// ErrValidation indicates a malformed, short or mistyped observation vector.
var ErrValidation = errors.New("observation: invalid vector")

// ValidationError describes the first schema violation found in a vector.
type ValidationError struct {
	// Index is the offending slot, or -1 for length errors.
	Index int

	// Reason describes the violation.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("observation: invalid vector: %s", e.Reason)
	}
	return fmt.Sprintf("observation: invalid vector: slot %d (%s): %s",
		e.Index, Channel(e.Index), e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Channel returns the offending channel, if the error concerns one slot.
func (e *ValidationError) Channel() (Channel, bool) {
	if e.Index < 0 || e.Index >= NumChannels {
		return 0, false
	}
	return Channel(e.Index), true
}

// IsValidation reports whether err is a schema validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
