package lti

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/san-kum/ptune/internal/integrators"
)

var approx = cmpopts.EquateApprox(1e-9, 1e-12)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		num     []float64
		den     []float64
		wantErr bool
		wantDen []float64
	}{
		{"first order", []float64{1}, []float64{1, -2}, false, []float64{1, -2}},
		{"leading zeros trimmed", []float64{0, 1}, []float64{0, 0, 2, 4}, false, []float64{2, 4}},
		{"empty num", nil, []float64{1}, true, nil},
		{"empty den", []float64{1}, nil, true, nil},
		{"zero den", []float64{1}, []float64{0, 0}, true, nil},
		{"nan", []float64{math.NaN()}, []float64{1, 1}, true, nil},
		{"inf", []float64{1}, []float64{math.Inf(1), 1}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.num, tt.den)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSystem) {
					t.Fatalf("expected ErrInvalidSystem, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantDen, g.Den(), approx); diff != "" {
				t.Errorf("den mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImmutability(t *testing.T) {
	num := []float64{1}
	g := MustNew(num, []float64{1, 2})
	num[0] = 42
	g.Den()[0] = 99

	if g.Num()[0] != 1 || g.Den()[0] != 1 {
		t.Errorf("transfer function mutated through caller slices: %s", g)
	}
}

func TestLoopAlgebra(t *testing.T) {
	plant := MustNew([]float64{1}, []float64{1, -2})

	open := Series(Gain(4), plant)
	if diff := cmp.Diff([]float64{4}, open.Num(), approx); diff != "" {
		t.Errorf("series num (-want +got):\n%s", diff)
	}

	closed := Feedback(open)
	if diff := cmp.Diff([]float64{1, 2}, closed.Den(), approx); diff != "" {
		t.Errorf("feedback den (-want +got):\n%s", diff)
	}

	cascade := Series(MustNew([]float64{1, 1}, []float64{1, 2}), MustNew([]float64{3}, []float64{1, 0, 1}))
	if diff := cmp.Diff([]float64{3, 3}, cascade.Num(), approx); diff != "" {
		t.Errorf("cascade num (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 2, 1, 2}, cascade.Den(), approx); diff != "" {
		t.Errorf("cascade den (-want +got):\n%s", diff)
	}
}

func TestRecoverOpenLoopRoundTrip(t *testing.T) {
	plants := []TransferFunction{
		MustNew([]float64{1}, []float64{1, 2}),
		MustNew([]float64{2}, []float64{2, 4}),
		MustNew([]float64{1, 1}, []float64{1, 2}),
		MustNew([]float64{5}, []float64{1, 3, 2}),
		MustNew([]float64{0.5, 1}, []float64{1, 6, 11, 6}),
	}

	rel := cmpopts.EquateApprox(1e-6, 0)
	for _, g := range plants {
		got, err := RecoverOpenLoop(Feedback(g))
		if err != nil {
			t.Fatalf("RecoverOpenLoop(%s): %v", g, err)
		}
		if diff := cmp.Diff(g.Num(), got.Num(), rel); diff != "" {
			t.Errorf("%s: num (-want +got):\n%s", g, diff)
		}
		if diff := cmp.Diff(g.Den(), got.Den(), rel); diff != "" {
			t.Errorf("%s: den (-want +got):\n%s", g, diff)
		}
	}
}

func TestRecoverOpenLoopSingular(t *testing.T) {
	tests := []TransferFunction{
		Gain(1),
		MustNew([]float64{1, 2}, []float64{1, 2}),
	}
	for _, h := range tests {
		if _, err := RecoverOpenLoop(h); !errors.Is(err, ErrSingularInverse) {
			t.Errorf("RecoverOpenLoop(%s) = %v, want ErrSingularInverse", h, err)
		}
	}
}

func TestPoles(t *testing.T) {
	poles, err := Poles(MustNew([]float64{1}, []float64{1, 3, 2}))
	if err != nil {
		t.Fatal(err)
	}
	re := []float64{real(poles[0]), real(poles[1])}
	sort.Float64s(re)
	if diff := cmp.Diff([]float64{-2, -1}, re, approx); diff != "" {
		t.Errorf("poles (-want +got):\n%s", diff)
	}

	osc, _ := Poles(MustNew([]float64{1}, []float64{1, 0, 4}))
	for _, p := range osc {
		if math.Abs(real(p)) > 1e-9 || math.Abs(math.Abs(imag(p))-2) > 1e-9 {
			t.Errorf("expected ±2j, got %v", p)
		}
	}

	if static, _ := Poles(Gain(3)); len(static) != 0 {
		t.Errorf("static gain has poles: %v", static)
	}
}

func TestPolesDegenerateLoop(t *testing.T) {
	// 1 + G vanishes for G = -1, leaving a zero denominator
	loop := Feedback(Gain(-1))
	if _, err := Poles(loop); !errors.Is(err, ErrInvalidSystem) {
		t.Errorf("Poles of %s: got %v, want ErrInvalidSystem", loop, err)
	}
	if IsStable(loop) {
		t.Errorf("IsStable(%s) = true, want false", loop)
	}
}

func TestIsStable(t *testing.T) {
	tests := []struct {
		den  []float64
		want bool
	}{
		{[]float64{1, 2}, true},
		{[]float64{1, -2}, false},
		{[]float64{1, 0}, false},
		{[]float64{1, 0, 1}, false},
		{[]float64{1, 1, 1}, true},
	}
	for _, tt := range tests {
		if got := IsStable(MustNew([]float64{1}, tt.den)); got != tt.want {
			t.Errorf("IsStable(1/%v) = %v, want %v", tt.den, got, tt.want)
		}
	}
}

func TestDCGain(t *testing.T) {
	if g := DCGain(MustNew([]float64{3}, []float64{1, 2})); math.Abs(g-1.5) > 1e-12 {
		t.Errorf("DCGain = %g, want 1.5", g)
	}
	if g := DCGain(MustNew([]float64{1}, []float64{1, 0})); !math.IsInf(g, 1) {
		t.Errorf("integrator DCGain = %g, want +Inf", g)
	}
}

func TestStepResponseFirstOrder(t *testing.T) {
	g := MustNew([]float64{1}, []float64{1, 1})
	grid := Linspace(0, 5, 501)

	methods := []struct {
		sim Simulator
		tol float64
	}{
		{ZOH{}, 1e-9},
		{Integrating{Label: "rk4", Integrator: integrators.NewRK4()}, 1e-6},
		{Integrating{Label: "rk45", Integrator: integrators.NewRK45()}, 1e-6},
		{Integrating{Label: "euler", Integrator: integrators.NewEuler()}, 5e-2},
	}

	for _, m := range methods {
		tr, err := StepResponse(g, grid, m.sim)
		if err != nil {
			t.Fatalf("%s: %v", m.sim.Name(), err)
		}
		if tr.Len() != len(grid) {
			t.Fatalf("%s: got %d samples, want %d", m.sim.Name(), tr.Len(), len(grid))
		}
		for i, tm := range tr.Times {
			if want := 1 - math.Exp(-tm); math.Abs(tr.Outputs[i]-want) > m.tol {
				t.Fatalf("%s: y(%.2f) = %.9f, want %.9f", m.sim.Name(), tm, tr.Outputs[i], want)
			}
		}
	}
}

func TestStepResponseFeedthrough(t *testing.T) {
	tr, err := StepResponse(MustNew([]float64{1, 0}, []float64{1, 1}), Linspace(0, 3, 301), nil)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(tr.Outputs[0]-1) > 1e-12 {
		t.Errorf("s/(s+1) should jump to 1 at t=0, got %g", tr.Outputs[0])
	}
	if last := tr.Outputs[len(tr.Outputs)-1]; math.Abs(last-math.Exp(-3)) > 1e-9 {
		t.Errorf("y(3) = %g, want %g", last, math.Exp(-3))
	}
}

func TestStepResponseErrors(t *testing.T) {
	improper := MustNew([]float64{1, 0, 0}, []float64{1, 1})
	_, err := StepResponse(improper, Linspace(0, 1, 10), nil)
	if !errors.Is(err, ErrSimulation) || !errors.Is(err, ErrImproper) {
		t.Errorf("improper system: got %v", err)
	}

	g := MustNew([]float64{1}, []float64{1, 1})
	for _, grid := range [][]float64{nil, {0}, {0, 1, 1}, {-1, 0, 1}} {
		if _, err := StepResponse(g, grid, nil); !errors.Is(err, ErrInvalidGrid) {
			t.Errorf("grid %v: expected ErrInvalidGrid, got %v", grid, err)
		}
	}
}

func TestCharacteristicsFirstOrder(t *testing.T) {
	info, err := Characteristics(MustNew([]float64{2}, []float64{1, 2}), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	if want := math.Log(50) / 2; math.Abs(info.SettlingTime-want) > 1e-3 {
		t.Errorf("settling time = %.5f, want %.5f", info.SettlingTime, want)
	}
	if want := math.Log(9) / 2; math.Abs(info.RiseTime-want) > 0.02 {
		t.Errorf("rise time = %.5f, want %.5f", info.RiseTime, want)
	}
	if math.Abs(info.SteadyState-1) > 1e-12 {
		t.Errorf("steady state = %g, want 1", info.SteadyState)
	}
	if info.Overshoot() != 0 {
		t.Errorf("first-order system overshoots: %g%%", info.Overshoot())
	}
}

func TestCharacteristicsSecondOrder(t *testing.T) {
	opts := DefaultOptions()
	opts.Samples = 4001
	info, err := Characteristics(MustNew([]float64{1}, []float64{1, 1, 1}), opts)
	if err != nil {
		t.Fatal(err)
	}

	zeta := 0.5
	want := 100 * math.Exp(-math.Pi*zeta/math.Sqrt(1-zeta*zeta))
	if math.Abs(info.Overshoot()-want) > 0.2 {
		t.Errorf("overshoot = %.3f%%, want %.3f%%", info.Overshoot(), want)
	}
	if wantTp := math.Pi / math.Sqrt(1-zeta*zeta); math.Abs(info.PeakTime-wantTp) > 0.02 {
		t.Errorf("peak time = %.4f, want %.4f", info.PeakTime, wantTp)
	}
	if info.SettlingTime <= info.PeakTime {
		t.Errorf("settling time %.3f should follow peak time %.3f", info.SettlingTime, info.PeakTime)
	}
}

func TestCharacteristicsFailures(t *testing.T) {
	_, err := Characteristics(MustNew([]float64{1}, []float64{1, -1}), DefaultOptions())
	if !errors.Is(err, ErrNotSettled) || !errors.Is(err, ErrSimulation) {
		t.Errorf("unstable system: got %v", err)
	}

	opts := DefaultOptions()
	opts.FinalTime = 0.5
	_, err = Characteristics(MustNew([]float64{1}, []float64{1, 1}), opts)
	if !errors.Is(err, ErrNotSettled) {
		t.Errorf("truncated horizon: expected ErrNotSettled, got %v", err)
	}

	var simErr *SimulationError
	if !errors.As(err, &simErr) || simErr.Sample < 0 {
		t.Errorf("expected sample context in %v", err)
	}
}

func TestIdealHorizon(t *testing.T) {
	tf, n := IdealHorizon(MustNew([]float64{1}, []float64{1, 2}))
	if want := math.Log(1000) / 2; math.Abs(tf-want) > 1e-12 {
		t.Errorf("final time = %g, want %g", tf, want)
	}
	if n < minSamples || n > maxSamples {
		t.Errorf("samples = %d outside [%d, %d]", n, minSamples, maxSamples)
	}

	if tf, _ := IdealHorizon(MustNew([]float64{1}, []float64{1, -2})); tf != defaultFinalTime {
		t.Errorf("unstable system horizon = %g, want default", tf)
	}
}

func TestString(t *testing.T) {
	if got, want := MustNew([]float64{1}, []float64{1, -2}).String(), "(1) / (s - 2)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
