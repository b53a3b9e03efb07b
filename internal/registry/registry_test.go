package registry

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/ptune/internal/config"
	"github.com/san-kum/ptune/internal/lti"
	"github.com/san-kum/ptune/internal/optim"
)

func TestMethods(t *testing.T) {
	r := New()
	g := lti.MustNew([]float64{1}, []float64{1, 1})
	grid := lti.Linspace(0, 2, 201)

	for _, name := range r.ListMethods() {
		m, err := r.GetMethod(name)
		if err != nil {
			t.Fatalf("GetMethod(%q): %v", name, err)
		}
		if m.Name() != name {
			t.Errorf("method %q reports name %q", name, m.Name())
		}
		tr, err := lti.StepResponse(g, grid, m)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got, want := tr.Outputs[len(grid)-1], 1-math.Exp(-2); math.Abs(got-want) > 1e-2 {
			t.Errorf("%s: y(2) = %f, want %f", name, got, want)
		}
	}

	if _, err := r.GetMethod("bdf"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestGlobals(t *testing.T) {
	r := New()
	sc := config.DefaultConfig().Solver
	sc.Population = 8
	sc.Workers = 3

	de, err := r.GetGlobal("de", sc)
	if err != nil {
		t.Fatal(err)
	}
	if d, ok := de.(*optim.DifferentialEvolution); !ok || d.Population != 8 || d.Workers != 3 {
		t.Errorf("de not configured from solver config: %#v", de)
	}

	if g, _ := r.GetGlobal("none", sc); g != nil {
		t.Errorf("expected nil global for none, got %#v", g)
	}
	if _, err := r.GetGlobal("anneal", sc); err == nil {
		t.Error("expected error for unknown global")
	}
}

func TestSynthesizerFromConfig(t *testing.T) {
	cfg := config.GetPreset("unstable_first_order")
	cfg.Solver.Global = "grid"

	synth, err := New().Synthesizer(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	plant, err := cfg.TransferFunction()
	if err != nil {
		t.Fatal(err)
	}

	res, err := synth.Synthesize(context.Background(), plant, cfg.Target, cfg.Plant.Closed)
	if err != nil {
		t.Fatalf("synthesis failed: %v", err)
	}
	if want := 2 + math.Log(50)/2; math.Abs(res.Gain-want) > 0.02 {
		t.Errorf("gain = %f, want %f", res.Gain, want)
	}
}
