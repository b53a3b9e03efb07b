package lti

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/ptune/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultFinalTime = 5.0
	totalCycles      = 5
	pointsPerCycle   = 25
	minSamples       = 200
	maxSamples       = 20000
	maxSubsteps      = 2_000_000
)

// logDecay is the number of time constants after which a mode has decayed to
// 0.1% of its initial amplitude.
var logDecay = math.Log(1000)

// Trace is a sampled unit-step response.
type Trace struct {
	Times   []float64
	Outputs []float64
}

func (t Trace) Len() int { return len(t.Times) }

// Simulator computes the unit-step response of a realization on a grid.
type Simulator interface {
	Name() string
	Simulate(ss *StateSpace, grid []float64) ([]float64, error)
}

// StepResponse simulates a unit step applied at t = 0 with zero initial state.
// A nil simulator selects ZOH.
func StepResponse(g TransferFunction, grid []float64, sim Simulator) (Trace, error) {
	if err := validateGrid(grid); err != nil {
		return Trace{}, err
	}
	ss, err := Realize(g)
	if err != nil {
		return Trace{}, simError("cannot realize system", err)
	}
	if sim == nil {
		sim = ZOH{}
	}

	y, err := sim.Simulate(ss, grid)
	if err != nil {
		return Trace{}, err
	}
	if len(y) == 0 {
		return Trace{}, simError("empty trace", nil)
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Trace{}, &SimulationError{Sample: i, Time: grid[i], Reason: "non-finite output"}
		}
	}

	times := append([]float64(nil), grid...)
	return Trace{Times: times, Outputs: y}, nil
}

// Linspace returns n evenly spaced samples over [start, stop].
func Linspace(start, stop float64, n int) []float64 {
	if n < 2 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// IdealHorizon picks a final time long enough for the slowest stable mode to
// decay to 0.1% (and for oscillatory modes to complete several cycles), and a
// sample count fine enough to resolve the fastest mode. Unstable and marginal
// systems get a fixed default horizon.
func IdealHorizon(g TransferFunction) (finalTime float64, samples int) {
	poles, err := Poles(g)
	if err != nil || len(poles) == 0 {
		return defaultFinalTime, minSamples
	}

	dt := math.Inf(1)
	for _, p := range poles {
		re, im, mag := real(p), math.Abs(imag(p)), cmplx.Abs(p)
		if mag < 1e-12 || re >= 0 {
			finalTime = math.Max(finalTime, defaultFinalTime)
		} else {
			tf := logDecay / math.Abs(re)
			if im > 1e-12 {
				tf = math.Max(tf, math.Min(totalCycles*2*math.Pi/im, 10*tf))
			}
			finalTime = math.Max(finalTime, tf)
		}
		if mag > 1e-12 {
			dt = math.Min(dt, 2*math.Pi/(pointsPerCycle*mag))
		}
	}
	if finalTime == 0 {
		finalTime = defaultFinalTime
	}

	samples = minSamples
	if !math.IsInf(dt, 1) {
		samples = int(math.Ceil(finalTime/dt)) + 1
	}
	if samples < minSamples {
		samples = minSamples
	}
	if samples > maxSamples {
		samples = maxSamples
	}
	return finalTime, samples
}

func validateGrid(grid []float64) error {
	if len(grid) < 2 {
		return fmt.Errorf("%w: need at least 2 samples, got %d", ErrInvalidGrid, len(grid))
	}
	if grid[0] < 0 || math.IsNaN(grid[0]) {
		return fmt.Errorf("%w: grid must start at t >= 0", ErrInvalidGrid)
	}
	for i := 1; i < len(grid); i++ {
		if !(grid[i] > grid[i-1]) || math.IsInf(grid[i], 0) {
			return fmt.Errorf("%w: not strictly increasing at sample %d", ErrInvalidGrid, i)
		}
	}
	return nil
}

// ZOH discretizes the realization exactly for a piecewise-constant input:
// over an interval h, x+ = e^{Ah} x + (∫ e^{Aτ} dτ) B u, both blocks taken
// from the exponential of the augmented matrix [[A, B], [0, 0]]·h.
type ZOH struct{}

func (ZOH) Name() string { return "zoh" }

func (ZOH) Simulate(ss *StateSpace, grid []float64) ([]float64, error) {
	n := ss.StateDim()
	y := make([]float64, len(grid))
	if n == 0 {
		for i := range y {
			y[i] = ss.D
		}
		return y, nil
	}

	x := mat.NewVecDense(n, nil)
	next := mat.NewVecDense(n, nil)
	var ad *mat.Dense
	var bd *mat.VecDense
	lastH := math.NaN()

	y[0] = ss.Output(dynamo.State(x.RawVector().Data), dynamo.Control{1})
	for k := 1; k < len(grid); k++ {
		h := grid[k] - grid[k-1]
		if math.IsNaN(lastH) || math.Abs(h-lastH) > 1e-12*math.Max(h, lastH) {
			ad, bd = discretize(ss, h)
			lastH = h
		}

		next.MulVec(ad, x)
		next.AddVec(next, bd)
		x, next = next, x

		state := dynamo.State(x.RawVector().Data)
		if !state.IsValid() {
			return nil, &SimulationError{Sample: k, Time: grid[k], Reason: "state diverged", Wrapped: dynamo.ErrInvalidState}
		}
		y[k] = ss.Output(state, dynamo.Control{1})
	}
	return y, nil
}

func discretize(ss *StateSpace, h float64) (*mat.Dense, *mat.VecDense) {
	n := ss.StateDim()
	aug := mat.NewDense(n+1, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			aug.Set(i, j, ss.A.At(i, j)*h)
		}
		aug.Set(i, n, ss.B[i]*h)
	}

	var e mat.Dense
	e.Exp(aug)

	ad := mat.DenseCopyOf(e.Slice(0, n, 0, n))
	bd := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		bd.SetVec(i, e.At(i, n))
	}
	return ad, bd
}

// Integrating advances the realization with a numerical integrator. The
// internal step is capped by the fastest mode so explicit methods stay inside
// their stability region; adaptive integrators pick their own sub-steps.
type Integrating struct {
	Label      string
	Integrator dynamo.Integrator
	Tolerance  float64
}

func (s Integrating) Name() string { return s.Label }

func (s Integrating) Simulate(ss *StateSpace, grid []float64) ([]float64, error) {
	n := ss.StateDim()
	y := make([]float64, len(grid))
	u := dynamo.Control{1}
	x := make(dynamo.State, n)
	y[0] = ss.Output(x, u)
	if n == 0 {
		for i := range y {
			y[i] = ss.D
		}
		return y, nil
	}

	hMax := 0.5 / spectralRadius(ss)
	tol := s.Tolerance
	if tol <= 0 {
		tol = 1e-8
	}
	adaptive, isAdaptive := s.Integrator.(dynamo.AdaptiveIntegrator)

	substeps := 0
	for k := 1; k < len(grid); k++ {
		t, end := grid[k-1], grid[k]
		h := math.Min(end-t, hMax)
		for t < end {
			if substeps++; substeps > maxSubsteps {
				return nil, &SimulationError{Sample: k, Time: t, Reason: "too many integration sub-steps", Wrapped: dynamo.ErrStepTooSmall}
			}
			h = math.Min(h, end-t)
			if isAdaptive {
				next, hNext, err := adaptive.StepAdaptive(ss, x, u, t, h, tol)
				if err != nil {
					return nil, &SimulationError{Sample: k, Time: t, Reason: err.Error(), Wrapped: err}
				}
				x = next
				t += h
				h = math.Max(hNext, 1e-12)
			} else {
				x = s.Integrator.Step(ss, x, u, t, h)
				t += h
			}
			if end-t < 1e-12*math.Max(1, end) {
				t = end
			}
		}
		if !x.IsValid() {
			return nil, &SimulationError{Sample: k, Time: end, Reason: "state diverged", Wrapped: dynamo.ErrInvalidState}
		}
		y[k] = ss.Output(x, u)
	}
	return y, nil
}

func spectralRadius(ss *StateSpace) float64 {
	n := ss.StateDim()
	var eig mat.Eigen
	if ok := eig.Factorize(ss.A, mat.EigenNone); !ok {
		return float64(n)
	}
	r := 0.0
	for _, v := range eig.Values(nil) {
		r = math.Max(r, cmplx.Abs(v))
	}
	if r < 1e-9 {
		return 1e-9
	}
	return r
}
