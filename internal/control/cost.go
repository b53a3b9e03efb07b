package control

import (
	"math"
	"sync/atomic"

	"github.com/san-kum/ptune/internal/lti"
	"github.com/san-kum/ptune/internal/optim"
)

// PenaltyCost is the cost of an infeasible gain. Every feasible cost is
// strictly below it.
const PenaltyCost = optim.DefaultPenalty

// PGain is the transfer function of a proportional controller.
func PGain(kp float64) lti.TransferFunction {
	return lti.Gain(kp)
}

// Cost is |ts - target| for the unity-feedback loop around kp·open, or
// PenaltyCost when kp is not positive, the loop is unstable or its settling
// time cannot be measured.
func Cost(kp float64, open lti.TransferFunction, target float64, opts lti.Options) float64 {
	if !(kp > 0) || math.IsInf(kp, 0) {
		return PenaltyCost
	}

	closed := lti.Feedback(lti.Series(PGain(kp), open))
	poles, err := lti.Poles(closed)
	if err != nil || !lti.AllStable(poles) {
		return PenaltyCost
	}

	info, err := lti.Characteristics(closed, opts)
	if err != nil {
		return PenaltyCost
	}
	c := math.Abs(info.SettlingTime - target)
	if math.IsNaN(c) || c >= PenaltyCost {
		return PenaltyCost
	}
	return c
}

// Evaluator binds a plant and target to Cost and counts its calls. It is
// safe for concurrent use.
type Evaluator struct {
	open   lti.TransferFunction
	target float64
	opts   lti.Options
	calls  atomic.Int64
}

func NewEvaluator(open lti.TransferFunction, target float64, opts lti.Options) *Evaluator {
	return &Evaluator{open: open, target: target, opts: opts}
}

func (e *Evaluator) Evaluate(kp float64) float64 {
	e.calls.Add(1)
	return Cost(kp, e.open, e.target, e.opts)
}

func (e *Evaluator) Calls() int {
	return int(e.calls.Load())
}

// NewCostFunc is Evaluate as an optim.CostFunc.
func NewCostFunc(open lti.TransferFunction, target float64, opts lti.Options) optim.CostFunc {
	return NewEvaluator(open, target, opts).Evaluate
}
