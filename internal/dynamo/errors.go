package dynamo

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState      = errors.New("dynamo: state is not finite")
	ErrContextCanceled   = errors.New("dynamo: run canceled")
	ErrStepTooSmall      = errors.New("dynamo: adaptive step below minimum")
	ErrDimensionMismatch = errors.New("dynamo: state does not match the plant order")
)

// SimulationError records where a closed-loop run stopped. State is the last
// valid state before the failing step.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
