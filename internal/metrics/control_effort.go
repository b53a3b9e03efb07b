package metrics

import (
	"math"

	"github.com/san-kum/ptune/internal/dynamo"
)

// ControlEffort is the mean of |u| over the observed samples. A larger gain
// buys a faster settling time with a larger effort at t = 0.
type ControlEffort struct {
	total   float64
	samples int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(y, ref float64, u dynamo.Control, t float64) {
	if len(u) > 0 {
		c.total += math.Abs(u[0])
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.total / float64(c.samples)
}

func (c *ControlEffort) Reset() { c.total, c.samples = 0, 0 }
