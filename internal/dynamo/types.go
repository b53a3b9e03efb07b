package dynamo

import "math"

// State is the state vector of a realized plant.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every entry is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// AddScaled returns s + h*k. Missing entries of k count as zero.
func (s State) AddScaled(k State, h float64) State {
	out := s.Clone()
	for i := range out {
		if i < len(k) {
			out[i] += h * k[i]
		}
	}
	return out
}

// Distance is the Euclidean distance between two states of equal length.
func (s State) Distance(other State) float64 {
	sum := 0.0
	for i := range s {
		d := s[i]
		if i < len(other) {
			d -= other[i]
		}
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Control is the plant input vector. Every plant in this module is SISO, so
// it carries one entry.
type Control []float64

// System is a continuous-time plant dX/dt = f(X, u, t) with output y = h(X, u).
type System interface {
	Derive(x State, u Control, t float64) State
	Output(x State, u Control) float64
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// AdaptiveIntegrator takes a step of at most dt and returns the new state
// together with the suggested next step size.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, u Control, t, dt, tol float64) (State, float64, error)
}

// Controller computes the plant input from the measured output and the reference.
type Controller interface {
	Compute(y, ref, t float64) Control
}

// Metric accumulates a scalar over the samples of one closed-loop run.
type Metric interface {
	Name() string
	Observe(y, ref float64, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, y float64, u Control, t float64)
}

// Config controls a closed-loop run. Reference is the constant setpoint;
// MaxDt and MinDt bound the step only when Adaptive is set.
type Config struct {
	Dt            float64
	Duration      float64
	Reference     float64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	Adaptive      bool
	ValidateState bool
}

// DefaultConfig is a unit step over ten seconds sampled every 10 ms.
func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		Reference:     1.0,
		Tolerance:     1e-6,
		MaxDt:         0.1,
		MinDt:         1e-8,
		ValidateState: true,
	}
}

// Result holds the sampled trajectory of a closed-loop run. Errors holds the
// step failure that ended the run early, if any.
type Result struct {
	States     []State
	Outputs    []float64
	Controls   []Control
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}
