package turn

import (
	"errors"

	"github.com/teslashibe/go-floor/pkg/fsm"
	"github.com/teslashibe/go-floor/pkg/observation"
)

// ErrNoSource indicates a Runner was built without a perception source.
var ErrNoSource = errors.New("turn: no perception source")

// Rejection reasons, as reported in metrics and logs.
const (
	reasonValidation  = "validation"
	reasonConcurrency = "concurrency"
	reasonFatal       = "fatal"
	reasonSource      = "source"
)

// IsValidation returns true when a tick was rejected for a malformed vector.
// The controller keeps its previous state; the next tick may succeed.
func IsValidation(err error) bool {
	return observation.IsValidation(err)
}

// IsConcurrency returns true when a tick overlapped another one.
func IsConcurrency(err error) bool {
	return fsm.IsConcurrency(err)
}

// IsFatal returns true when the rule set itself is broken.
func IsFatal(err error) bool {
	return fsm.IsFatal(err)
}

func rejectReason(err error) string {
	switch {
	case IsValidation(err):
		return reasonValidation
	case IsConcurrency(err):
		return reasonConcurrency
	case IsFatal(err):
		return reasonFatal
	default:
		return reasonSource
	}
}
