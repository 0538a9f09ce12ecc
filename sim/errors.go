package sim

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind tags the error taxonomy spec.md §7 specifies.
type ErrorKind int

const (
	// NodeMismatch: subcircuit pin count vs connection count differs.
	// Not produced by this package (no subcircuit expansion here) but
	// kept in the taxonomy for collaborators that do.
	NodeMismatch ErrorKind = iota
	// Singular: the LU factor hit a zero pivot.
	Singular
	// NonConvergenceKind: the Newton loop exceeded maxIter or δ fell
	// below MinStep.
	NonConvergenceKind
	// TimestepTooSmall: LTE demands a step below MinStep.
	TimestepTooSmall
	// Misconfigured: invalid configuration at setup.
	Misconfigured
)

func (k ErrorKind) String() string {
	switch k {
	case NodeMismatch:
		return "NodeMismatch"
	case Singular:
		return "Singular"
	case NonConvergenceKind:
		return "NonConvergence"
	case TimestepTooSmall:
		return "TimestepTooSmall"
	case Misconfigured:
		return "Misconfigured"
	default:
		return "Unknown"
	}
}

// Error carries the simulated time alongside the error kind, per
// spec.md §7's "diagnostic carries simulated time and offending
// entity/node identifier" rule.
type Error struct {
	Kind    ErrorKind
	Time    float64
	Message string
	Row     int     // valid for Singular
	Residual float64 // valid for NonConvergenceKind
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at t=%.9g: %s", e.Kind, e.Time, e.Message)
}

func newError(kind ErrorKind, time float64, format string, args ...any) error {
	return errors.WithStack(&Error{Kind: kind, Time: time, Message: fmt.Sprintf(format, args...)})
}

func singularAt(time float64, row int) error {
	return errors.WithStack(&Error{Kind: Singular, Time: time, Row: row, Message: fmt.Sprintf("zero pivot at row %d", row)})
}

func nonConvergenceAt(time, residual float64) error {
	return errors.WithStack(&Error{Kind: NonConvergenceKind, Time: time, Residual: residual, Message: "newton iteration exceeded maxIter"})
}

func timestepTooSmallAt(time float64) error {
	return errors.WithStack(&Error{Kind: TimestepTooSmall, Time: time, Message: "local truncation error demands a step below MinStep"})
}
