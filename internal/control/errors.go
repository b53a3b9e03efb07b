package control

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput is returned before any search when the plant or the
	// target cannot be tuned for.
	ErrInvalidInput = errors.New("control: invalid synthesis input")

	// ErrSynthesisFailed is matched by every *SynthesisError.
	ErrSynthesisFailed = errors.New("control: no stabilizing gain found")
)

// SynthesisError reports a search that ended without any feasible gain.
// BestCost is the lowest cost observed, which is PenaltyCost once any
// candidate was evaluated and NaN when the search stopped before the first
// evaluation.
type SynthesisError struct {
	Attempts    int
	Evaluations int
	BestCost    float64
	Reason      string
}

func (e *SynthesisError) Error() string {
	best := "none"
	if !math.IsNaN(e.BestCost) {
		best = fmt.Sprintf("%.4g", e.BestCost)
	}
	return fmt.Sprintf("control: synthesis failed after %d attempts (%d evaluations, best cost %s): %s",
		e.Attempts, e.Evaluations, best, e.Reason)
}

func (e *SynthesisError) Unwrap() error {
	return ErrSynthesisFailed
}
