package lti

import (
	"fmt"

	"github.com/san-kum/ptune/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// StateSpace is the controllable canonical realization of a proper transfer
// function:
//
//	dx/dt = A x + B u
//	y     = C x + D u
//
// It implements dynamo.System so the numerical integrators can drive it.
type StateSpace struct {
	A *mat.Dense
	B []float64
	C []float64
	D float64
}

// Realize builds the controllable canonical form of g. A static gain yields a
// zero-state system with only the feedthrough term.
func Realize(g TransferFunction) (*StateSpace, error) {
	if !g.IsProper() {
		return nil, fmt.Errorf("%w: %s", ErrImproper, g)
	}

	lead := g.den[0]
	n := len(g.den) - 1

	a := make([]float64, n)
	for i := range a {
		a[i] = g.den[i+1] / lead
	}
	b := make([]float64, n+1)
	if !g.IsZero() {
		off := n + 1 - len(g.num)
		for i, c := range g.num {
			b[off+i] = c / lead
		}
	}

	ss := &StateSpace{D: b[0], B: make([]float64, n), C: make([]float64, n)}
	if n == 0 {
		return ss, nil
	}

	ss.A = mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		ss.A.Set(0, j, -a[j])
	}
	for i := 1; i < n; i++ {
		ss.A.Set(i, i-1, 1)
	}
	ss.B[0] = 1
	for i := 0; i < n; i++ {
		ss.C[i] = b[i+1] - a[i]*b[0]
	}
	return ss, nil
}

func (s *StateSpace) StateDim() int   { return len(s.B) }
func (s *StateSpace) ControlDim() int { return 1 }

func (s *StateSpace) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	n := len(s.B)
	dx := make(dynamo.State, n)
	in := 0.0
	if len(u) > 0 {
		in = u[0]
	}
	for i := 0; i < n; i++ {
		acc := s.B[i] * in
		for j := 0; j < n; j++ {
			acc += s.A.At(i, j) * x[j]
		}
		dx[i] = acc
	}
	return dx
}

func (s *StateSpace) Output(x dynamo.State, u dynamo.Control) float64 {
	y := 0.0
	if len(u) > 0 {
		y = s.D * u[0]
	}
	for i, c := range s.C {
		y += c * x[i]
	}
	return y
}
