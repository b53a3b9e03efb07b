package optim

import (
	"fmt"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// Point is the result of a single search.
type Point struct {
	X         float64
	F         float64
	Converged bool
	Message   string
}

// CostFunc maps a candidate to a non-negative cost.
type CostFunc func(x float64) float64

// LBFGS is the local tier: limited-memory BFGS over a tanh reparameterization
// of the bounds, with a central finite-difference gradient. It minimizes the
// square of the cost, which has the same minimizers and stays smooth where
// the cost itself has a corner at zero.
type LBFGS struct {
	MaxIterations int
	GradStep      float64
}

func NewLBFGS() *LBFGS {
	return &LBFGS{MaxIterations: 200, GradStep: 1e-6}
}

func (l *LBFGS) Minimize(f CostFunc, b Bounds, x0 float64) Point {
	tr := newBoxTransform(b)
	obj := func(y []float64) float64 {
		c := f(tr.toX(y[0]))
		return c * c
	}

	step := l.GradStep
	if step <= 0 {
		step = 1e-6
	}
	problem := optimize.Problem{
		Func: obj,
		Grad: func(grad, y []float64) {
			fd.Gradient(grad, obj, y, &fd.Settings{Formula: fd.Central, Step: step})
		},
	}

	iters := l.MaxIterations
	if iters <= 0 {
		iters = 200
	}
	settings := &optimize.Settings{
		MajorIterations:   iters,
		GradientThreshold: 1e-12,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Relative:   1e-12,
			Iterations: 20,
		},
	}

	x0 = b.Clamp(x0)
	res, err := optimize.Minimize(problem, []float64{tr.toY(x0)}, settings, &optimize.LBFGS{})
	if res == nil || len(res.X) == 0 {
		msg := "local search failed"
		if err != nil {
			msg = err.Error()
		}
		return Point{X: x0, F: f(x0), Message: msg}
	}

	x := b.Clamp(tr.toX(res.X[0]))
	p := Point{
		X:         x,
		F:         f(x),
		Converged: err == nil && succeeded(res.Status),
		Message:   fmt.Sprintf("l-bfgs: %s after %d iterations", res.Status, res.Stats.MajorIterations),
	}
	if err != nil {
		p.Message = fmt.Sprintf("l-bfgs: %v", err)
	}
	return p
}

func succeeded(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.MethodConverge, optimize.FunctionThreshold,
		optimize.FunctionConvergence, optimize.GradientThreshold, optimize.StepConvergence:
		return true
	}
	return false
}
