package metrics

import (
	"math"

	"github.com/san-kum/ptune/internal/dynamo"
)

// Stability is the fraction of samples whose output stays inside
// [-bound, bound]. Non-finite outputs count as outside.
type Stability struct {
	bound   float64
	inside  int
	samples int
}

func NewStability(bound float64) *Stability { return &Stability{bound: bound} }

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(y, ref float64, u dynamo.Control, t float64) {
	s.samples++
	if !math.IsNaN(y) && math.Abs(y) <= s.bound {
		s.inside++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1
	}
	return float64(s.inside) / float64(s.samples)
}

func (s *Stability) Reset() { s.inside, s.samples = 0, 0 }
