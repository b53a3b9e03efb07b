package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/ptune/internal/control"
	"github.com/san-kum/ptune/internal/lti"
	"github.com/san-kum/ptune/internal/viz"
)

func overlay(t *testing.T) *viz.Overlay {
	t.Helper()
	plant := lti.MustNew([]float64{1}, []float64{1, -2})
	series := []viz.Series{
		{System: lti.Feedback(plant), Label: viz.OriginalLabel},
		{System: lti.Feedback(lti.Series(control.PGain(3.956), plant)), Label: viz.ControllerLabel(3.956)},
	}
	o, err := viz.BuildOverlay(series, lti.DefaultOptions())
	if err != nil {
		t.Fatalf("BuildOverlay: %v", err)
	}
	return o
}

func TestPlot(t *testing.T) {
	o := overlay(t)
	p, err := Plot(o, nil)
	if err != nil {
		t.Fatalf("Plot: %v", err)
	}
	if p.X.Max != o.TMax || p.Y.Max != o.YMax {
		t.Errorf("axes = [0, %v] x [%v, %v], want overlay axes", p.X.Max, p.Y.Min, p.Y.Max)
	}
}

func TestWrite(t *testing.T) {
	o := overlay(t)
	ann := viz.NewAnnotations()
	ann.ShowAll(o)

	tests := []struct {
		format string
		magic  string
	}{
		{"png", "\x89PNG"},
		{"svg", "<?xml"},
		{"pdf", "%PDF"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, o, ann, tt.format); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if !strings.HasPrefix(buf.String(), tt.magic) {
				t.Errorf("output does not start with %q", tt.magic)
			}
		})
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, overlay(t), nil, "bmp"); !errors.Is(err, ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestSave(t *testing.T) {
	o := overlay(t)
	path := filepath.Join(t.TempDir(), "plots", "step.png")
	if err := Save(path, o, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("empty image")
	}

	if err := Save(filepath.Join(t.TempDir(), "step.gif"), o, nil); !errors.Is(err, ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}
