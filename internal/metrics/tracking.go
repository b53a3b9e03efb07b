package metrics

import (
	"math"

	"github.com/san-kum/ptune/internal/dynamo"
)

// errorIntegral integrates a function of the tracking error with the
// trapezoidal rule over the observation times.
type errorIntegral struct {
	name    string
	weight  func(e float64) float64
	sum     float64
	prevT   float64
	prevW   float64
	samples int
}

func (m *errorIntegral) Name() string { return m.name }

func (m *errorIntegral) Observe(y, ref float64, u dynamo.Control, t float64) {
	w := m.weight(ref - y)
	if m.samples > 0 {
		m.sum += 0.5 * (w + m.prevW) * (t - m.prevT)
	}
	m.prevT, m.prevW = t, w
	m.samples++
}

func (m *errorIntegral) Value() float64 { return m.sum }

func (m *errorIntegral) Reset() {
	m.sum, m.prevT, m.prevW = 0, 0, 0
	m.samples = 0
}

// NewIAE integrates |r - y|.
func NewIAE() dynamo.Metric {
	return &errorIntegral{name: "iae", weight: math.Abs}
}

// NewISE integrates (r - y)².
func NewISE() dynamo.Metric {
	return &errorIntegral{name: "ise", weight: func(e float64) float64 { return e * e }}
}

type PeakOutput struct {
	peak float64
	seen bool
}

func NewPeakOutput() *PeakOutput { return &PeakOutput{} }

func (p *PeakOutput) Name() string { return "peak_output" }

func (p *PeakOutput) Observe(y, ref float64, u dynamo.Control, t float64) {
	if !p.seen || y > p.peak {
		p.peak, p.seen = y, true
	}
}

func (p *PeakOutput) Value() float64 { return p.peak }

func (p *PeakOutput) Reset() {
	p.peak, p.seen = 0, false
}

// Standard returns the metrics reported for a closed-loop verification run.
func Standard() []dynamo.Metric {
	return []dynamo.Metric{NewIAE(), NewISE(), NewControlEffort(), NewPeakOutput(), NewStability(1e6)}
}
