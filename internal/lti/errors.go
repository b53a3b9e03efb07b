package lti

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSystem indicates an empty or non-finite coefficient list, or a
	// denominator whose coefficients are all zero.
	ErrInvalidSystem = errors.New("lti: invalid transfer function")

	// ErrImproper indicates a numerator of higher degree than the denominator.
	ErrImproper = errors.New("lti: improper transfer function")

	// ErrSingularInverse indicates that 1 - H vanishes, so no open loop
	// produces H under unity feedback.
	ErrSingularInverse = errors.New("lti: closed loop is not invertible under unity feedback")

	// ErrInvalidGrid indicates a time grid that is too short, negative or not
	// strictly increasing.
	ErrInvalidGrid = errors.New("lti: invalid time grid")

	// ErrSimulation is matched by every *SimulationError.
	ErrSimulation = errors.New("lti: step simulation failed")

	// ErrNotSettled indicates the response never stays inside the settling band.
	ErrNotSettled = errors.New("lti: response does not settle within the simulated horizon")
)

// SimulationError describes a failed step simulation or characteristic
// extraction.
type SimulationError struct {
	Sample  int
	Time    float64
	Reason  string
	Wrapped error
}

func (e *SimulationError) Error() string {
	if e.Sample >= 0 {
		return fmt.Sprintf("lti: simulation failed at sample %d (t=%.4f): %s", e.Sample, e.Time, e.Reason)
	}
	return fmt.Sprintf("lti: simulation failed: %s", e.Reason)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

func (e *SimulationError) Is(target error) bool {
	return target == ErrSimulation
}

func simError(reason string, wrapped error) *SimulationError {
	return &SimulationError{Sample: -1, Reason: reason, Wrapped: wrapped}
}
