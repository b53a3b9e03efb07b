package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/ptune/internal/dynamo"
)

// Simulator runs a plant in unity feedback with a controller. The controller
// is evaluated inside every derivative call, so it must be memoryless.
type Simulator struct {
	plant      dynamo.System
	integrator dynamo.Integrator
	controller dynamo.Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

func New(plant dynamo.System, integrator dynamo.Integrator, controller dynamo.Controller) *Simulator {
	return &Simulator{
		plant:      plant,
		integrator: integrator,
		controller: controller,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// loop is the closed loop seen by the integrator: the measured output is the
// strictly proper part of the plant output.
type loop struct {
	plant dynamo.System
	ctrl  dynamo.Controller
	ref   float64
}

func (l *loop) Derive(x dynamo.State, _ dynamo.Control, t float64) dynamo.State {
	return l.plant.Derive(x, l.input(x, t), t)
}

func (l *loop) Output(x dynamo.State, _ dynamo.Control) float64 { return l.plant.Output(x, nil) }
func (l *loop) StateDim() int                                  { return l.plant.StateDim() }
func (l *loop) ControlDim() int                                { return 0 }

func (l *loop) input(x dynamo.State, t float64) dynamo.Control {
	return l.ctrl.Compute(l.plant.Output(x, nil), l.ref, t)
}

func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.validateConfig(x0, cfg); err != nil {
		return nil, err
	}

	steps := int(math.Ceil(cfg.Duration/cfg.Dt - 1e-9))
	result := &dynamo.Result{
		States:   make([]dynamo.State, 0, steps+1),
		Outputs:  make([]float64, 0, steps+1),
		Controls: make([]dynamo.Control, 0, steps+1),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	cl := &loop{plant: s.plant, ctrl: s.controller, ref: cfg.Reference}
	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt

	for {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		y := cl.Output(x, nil)
		u := cl.input(x, t)

		for _, m := range s.metrics {
			m.Observe(y, cfg.Reference, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, y, u, t)
		}
		result.States = append(result.States, x.Clone())
		result.Outputs = append(result.Outputs, y)
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, t)

		remaining := cfg.Duration - t
		if remaining <= 1e-9*cfg.Duration {
			break
		}
		h := math.Min(dt, remaining)

		var newX dynamo.State
		var stepErr error
		if cfg.Adaptive {
			newX, h, dt, stepErr = s.adaptiveStep(cl, x, t, h, cfg)
		} else {
			newX = s.integrator.Step(cl, x, nil, t, h)
		}

		if stepErr != nil {
			result.Errors = append(result.Errors, &dynamo.SimulationError{Step: result.StepsTaken, Time: t, State: x.Clone(), Wrapped: stepErr})
			break
		}

		if cfg.ValidateState && !newX.IsValid() {
			result.Errors = append(result.Errors, &dynamo.SimulationError{Step: result.StepsTaken, Time: t, State: x.Clone(), Wrapped: dynamo.ErrInvalidState})
			break
		}

		x = newX
		t += h
		result.StepsTaken++
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) validateConfig(x0 dynamo.State, cfg dynamo.Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive for adaptive stepping")
	}
	if len(x0) != s.plant.StateDim() {
		return fmt.Errorf("%w: initial state has %d entries, plant has %d states",
			dynamo.ErrDimensionMismatch, len(x0), s.plant.StateDim())
	}
	return nil
}

// adaptiveStep uses the integrator's own error control when it has one and
// step doubling otherwise. It returns the new state, the step actually taken
// and the suggested next step.
func (s *Simulator) adaptiveStep(cl *loop, x dynamo.State, t, h float64, cfg dynamo.Config) (dynamo.State, float64, float64, error) {
	if adaptive, ok := s.integrator.(dynamo.AdaptiveIntegrator); ok {
		next, hNext, err := adaptive.StepAdaptive(cl, x, nil, t, h, cfg.Tolerance)
		if cfg.MaxDt > 0 {
			hNext = math.Min(hNext, cfg.MaxDt)
		}
		return next, h, hNext, err
	}

	x1 := s.integrator.Step(cl, x, nil, t, h)
	xHalf := s.integrator.Step(cl, x, nil, t, h/2)
	x2 := s.integrator.Step(cl, xHalf, nil, t+h/2, h/2)

	err := x1.Distance(x2)
	if err > cfg.Tolerance {
		if h/2 < cfg.MinDt {
			return nil, h, h, dynamo.ErrStepTooSmall
		}
		return s.adaptiveStep(cl, x, t, h/2, cfg)
	}

	next := h
	if err < cfg.Tolerance/10 {
		next = 2 * h
		if cfg.MaxDt > 0 {
			next = math.Min(next, cfg.MaxDt)
		}
	}
	return x2, h, next, nil
}
