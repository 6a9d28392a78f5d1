package afpipeline

import "github.com/pkg/errors"

// PreconditionViolated is returned when an operation is invoked outside the
// state the §4.10 state machine allows it in — e.g. popping more scopes
// than are open, or committing past the end of the assertion list.
type PreconditionViolated struct {
	Op     string
	Reason string
}

func (e *PreconditionViolated) Error() string {
	return "precondition violated for " + e.Op + ": " + e.Reason
}

// NewPreconditionViolated wraps the condition with a stack trace, the way
// asserted_formulas.cpp's callers throw default_exception on a bad
// precondition rather than asserting in release builds.
func NewPreconditionViolated(op, reason string) error {
	return errors.WithStack(&PreconditionViolated{Op: op, Reason: reason})
}

// MissingInvariant signals that an internal consistency check the store is
// supposed to maintain (§3, invariants 1-5) did not hold when verified —
// this is always a defect in this package, never a caller mistake, and is
// wrapped with a stack trace so it is diagnosable from a bug report.
type MissingInvariant struct {
	Invariant string
}

func (e *MissingInvariant) Error() string {
	return "invariant violated: " + e.Invariant
}

func NewMissingInvariant(invariant string) error {
	return errors.WithStack(&MissingInvariant{Invariant: invariant})
}

// IsPreconditionViolated reports whether err (or one it wraps) is a
// PreconditionViolated, the pkg/errors idiom this package uses in place of
// bare type assertions.
func IsPreconditionViolated(err error) bool {
	var target *PreconditionViolated
	return errors.As(err, &target)
}

func IsMissingInvariant(err error) bool {
	var target *MissingInvariant
	return errors.As(err, &target)
}
