package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/ptune/internal/dynamo"
)

func observeRamp(m dynamo.Metric) {
	// y = 1 - t on [0, 1] against a unit reference: e = t
	for i := 0; i <= 100; i++ {
		t := float64(i) / 100
		m.Observe(1-t, 1, dynamo.Control{2 * t}, t)
	}
}

func TestErrorIntegrals(t *testing.T) {
	tests := []struct {
		metric dynamo.Metric
		want   float64
		tol    float64
	}{
		{NewIAE(), 0.5, 1e-12},
		{NewISE(), 1.0 / 3, 1e-4},
	}

	for _, tt := range tests {
		t.Run(tt.metric.Name(), func(t *testing.T) {
			observeRamp(tt.metric)
			if got := tt.metric.Value(); math.Abs(got-tt.want) > tt.tol {
				t.Errorf("%s = %f, want %f", tt.metric.Name(), got, tt.want)
			}
			tt.metric.Reset()
			if tt.metric.Value() != 0 {
				t.Errorf("expected zero after reset, got %f", tt.metric.Value())
			}
		})
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	if m.Value() != 0 {
		t.Error("expected zero effort before any sample")
	}
	m.Observe(0, 1, dynamo.Control{-3}, 0)
	m.Observe(0, 1, dynamo.Control{1}, 0.1)
	if m.Value() != 2 {
		t.Errorf("expected mean |u| 2, got %f", m.Value())
	}
}

func TestPeakOutput(t *testing.T) {
	m := NewPeakOutput()
	for _, y := range []float64{-0.5, 0.4, 1.2, 0.9} {
		m.Observe(y, 1, nil, 0)
	}
	if m.Value() != 1.2 {
		t.Errorf("expected peak 1.2, got %f", m.Value())
	}
}

func TestStability(t *testing.T) {
	m := NewStability(10)
	if m.Value() != 1 {
		t.Errorf("expected 1 before any sample, got %f", m.Value())
	}
	for _, y := range []float64{1, 5, 20, math.NaN()} {
		m.Observe(y, 1, nil, 0)
	}
	if m.Value() != 0.5 {
		t.Errorf("expected 0.5, got %f", m.Value())
	}
}

func TestStandardNames(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Standard() {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %q", m.Name())
		}
		seen[m.Name()] = true
	}
	for _, name := range []string{"iae", "ise", "control_effort", "peak_output", "stability"} {
		if !seen[name] {
			t.Errorf("missing metric %q", name)
		}
	}
}
