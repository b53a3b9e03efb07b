package viz

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/ptune/internal/control"
	"github.com/san-kum/ptune/internal/lti"
)

const (
	// OverlaySamples is the number of points on the shared time grid.
	OverlaySamples = 1000

	minSettlingSpan = 5.0
	timeSlack       = 1.8
	outputSlack     = 1.2
	finalEdge       = 0.999

	OriginalLabel = "Original system"
)

var ErrNoSeries = errors.New("viz: no series to plot")

// ControllerLabel is the legend label of a loop closed around gain kp.
func ControllerLabel(kp float64) string {
	return fmt.Sprintf("P controller (Kp = %.3f)", kp)
}

// Series is one closed-loop system to draw.
type Series struct {
	System lti.TransferFunction
	Label  string
}

// TuningSeries returns the original system and, when a gain was found, the
// controlled loop.
func TuningSeries(res *control.Result) []Series {
	series := []Series{{System: res.Original, Label: OriginalLabel}}
	if res.Controlled != nil {
		series = append(series, Series{System: *res.Controlled, Label: ControllerLabel(res.Gain)})
	}
	return series
}

type MarkerKind int

const (
	MarkerSettling MarkerKind = iota
	MarkerPeak
	MarkerFinal
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerSettling:
		return "Settling time"
	case MarkerPeak:
		return "Peak"
	case MarkerFinal:
		return "Final value"
	}
	return "unknown"
}

// Marker is a labeled point on a curve.
type Marker struct {
	Kind   MarkerKind
	Time   float64
	Output float64
}

// Curve is a Series simulated on the overlay grid. Info is nil for series
// whose characteristics could not be extracted, and Outputs is nil when the
// simulation diverged.
type Curve struct {
	Label   string
	Outputs []float64
	Info    *lti.StepInfo
	Markers []Marker
}

// Overlay is a set of curves on shared axes.
type Overlay struct {
	Times  []float64
	Curves []Curve
	TMax   float64
	YMin   float64
	YMax   float64
}

// BuildOverlay simulates every series on the shared grid.
func BuildOverlay(series []Series, opts lti.Options) (*Overlay, error) {
	if len(series) == 0 {
		return nil, ErrNoSeries
	}

	infos := make([]*lti.StepInfo, len(series))
	settling := minSettlingSpan
	for i, s := range series {
		info, err := lti.Characteristics(s.System, opts)
		if err != nil {
			continue
		}
		infos[i] = &info
		settling = math.Max(settling, info.SettlingTime)
	}

	o := &Overlay{TMax: settling * timeSlack}
	o.Times = lti.Linspace(0, o.TMax, OverlaySamples)

	peak, low := 0.0, 0.0
	for i, s := range series {
		c := Curve{Label: s.Label, Info: infos[i]}
		trace, err := lti.StepResponse(s.System, o.Times, opts.Method)
		switch {
		case err != nil && c.Info != nil:
			return nil, fmt.Errorf("viz: simulate %q: %w", s.Label, err)
		case err != nil:
			// diverged past float range; drawn as empty
			o.Curves = append(o.Curves, c)
			continue
		}
		c.Outputs = trace.Outputs
		if c.Info != nil {
			c.Markers = markers(o.Times, trace.Outputs, *c.Info, o.TMax)
			peak = math.Max(peak, c.Info.Peak)
			for _, y := range trace.Outputs {
				low = math.Min(low, y)
			}
		}
		o.Curves = append(o.Curves, c)
	}

	if peak == 0 {
		peak = 1
	}
	o.YMax = peak * outputSlack
	o.YMin = low * outputSlack
	return o, nil
}

func markers(times, outputs []float64, info lti.StepInfo, tmax float64) []Marker {
	var ms []Marker
	idx := sort.SearchFloat64s(times, info.SettlingTime)
	if idx < len(times) {
		ms = append(ms, Marker{Kind: MarkerSettling, Time: info.SettlingTime, Output: outputs[idx]})
	}
	if info.Overshoot() > 0 {
		best := 0
		for i, y := range outputs {
			if math.Abs(y) > math.Abs(outputs[best]) {
				best = i
			}
		}
		ms = append(ms, Marker{Kind: MarkerPeak, Time: times[best], Output: outputs[best]})
	}
	ms = append(ms, Marker{Kind: MarkerFinal, Time: tmax * finalEdge, Output: info.SteadyState})
	return ms
}

// Points lists every marker in curve order.
func (o *Overlay) Points() []Point {
	var pts []Point
	for _, c := range o.Curves {
		for _, m := range c.Markers {
			pts = append(pts, Point{Key: Key{Label: c.Label, Kind: m.Kind}, Marker: m})
		}
	}
	return pts
}

// Clip bounds y to the output axis.
func (o *Overlay) Clip(y float64) float64 {
	if math.IsNaN(y) {
		return o.YMin
	}
	return math.Max(o.YMin, math.Min(o.YMax, y))
}
