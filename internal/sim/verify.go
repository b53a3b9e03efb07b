package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/ptune/internal/control"
	"github.com/san-kum/ptune/internal/dynamo"
	"github.com/san-kum/ptune/internal/lti"
	"github.com/san-kum/ptune/internal/metrics"
)

var ErrFeedthrough = errors.New("sim: closed-loop verification needs a strictly proper plant")

// Verification compares a time-domain closed-loop run against the step
// response of the closed-loop transfer function on the same time grid.
// Trace is the simulated output as recorded by an observer on the run.
type Verification struct {
	Result       *dynamo.Result
	Trace        lti.Trace
	Expected     lti.Trace
	MaxDeviation float64
}

// traceRecorder collects the sampled output of a run.
type traceRecorder struct {
	trace lti.Trace
}

func (r *traceRecorder) OnStep(x dynamo.State, y float64, u dynamo.Control, t float64) {
	r.trace.Times = append(r.trace.Times, t)
	r.trace.Outputs = append(r.trace.Outputs, y)
}

// Verify simulates the realization of open under u = kp·(r - y) with a unit
// reference and measures the largest deviation from the analytic loop.
func Verify(ctx context.Context, open lti.TransferFunction, kp float64, integ dynamo.Integrator, cfg dynamo.Config) (*Verification, error) {
	ss, err := lti.Realize(open)
	if err != nil {
		return nil, err
	}
	if ss.D != 0 {
		return nil, fmt.Errorf("%w: %s", ErrFeedthrough, open)
	}

	s := New(ss, integ, control.NewProportional(kp))
	for _, m := range metrics.Standard() {
		s.AddMetric(m)
	}
	rec := &traceRecorder{}
	s.AddObserver(rec)

	res, err := s.Run(ctx, make(dynamo.State, ss.StateDim()), cfg)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, res.Errors[0]
	}

	closed := lti.Feedback(lti.Series(control.PGain(kp), open))
	expected, err := lti.StepResponse(closed, rec.trace.Times, nil)
	if err != nil {
		return nil, err
	}

	v := &Verification{Result: res, Trace: rec.trace, Expected: expected}
	for i, y := range rec.trace.Outputs {
		expected.Outputs[i] *= cfg.Reference
		v.MaxDeviation = math.Max(v.MaxDeviation, math.Abs(y-expected.Outputs[i]))
	}
	return v, nil
}
