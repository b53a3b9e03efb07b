package viz

import (
	"fmt"
	"math"
)

// HitTolerance is the fraction of each axis span within which a click
// selects a marker.
const HitTolerance = 0.05

// Key identifies one marker of one curve.
type Key struct {
	Label string
	Kind  MarkerKind
}

// Point is a marker together with the curve it belongs to.
type Point struct {
	Key    Key
	Marker Marker
}

// Text is the label shown next to the point. Final values show the output
// only.
func (p Point) Text() string {
	head := p.Key.Label + " - " + p.Key.Kind.String()
	if p.Key.Kind == MarkerFinal {
		return fmt.Sprintf("%s\nOutput: %.4f", head, p.Marker.Output)
	}
	return fmt.Sprintf("%s\nTime: %.4fs\nOutput: %.4f", head, p.Marker.Time, p.Marker.Output)
}

// Annotations holds the set of visible marker labels. The zero value has
// every label hidden.
type Annotations struct {
	shown map[Key]bool
}

func NewAnnotations() *Annotations {
	return &Annotations{shown: make(map[Key]bool)}
}

// Toggle flips the label of key and reports whether it is now visible.
func (a *Annotations) Toggle(key Key) bool {
	if a.shown == nil {
		a.shown = make(map[Key]bool)
	}
	if a.shown[key] {
		delete(a.shown, key)
		return false
	}
	a.shown[key] = true
	return true
}

func (a *Annotations) Visible(key Key) bool { return a.shown[key] }

func (a *Annotations) Len() int { return len(a.shown) }

// ShowAll makes every marker of o visible.
func (a *Annotations) ShowAll(o *Overlay) {
	for _, p := range o.Points() {
		if !a.Visible(p.Key) {
			a.Toggle(p.Key)
		}
	}
}

func (a *Annotations) HideAll() { clear(a.shown) }

// HitTest returns the marker nearest to (t, y) when it lies within
// HitTolerance of both axis spans.
func (a *Annotations) HitTest(o *Overlay, t, y float64) (Point, bool) {
	tolT := HitTolerance * o.TMax
	tolY := HitTolerance * (o.YMax - o.YMin)
	var (
		best  Point
		found bool
		dist  = math.Inf(1)
	)
	for _, p := range o.Points() {
		dt, dy := math.Abs(p.Marker.Time-t), math.Abs(p.Marker.Output-y)
		if dt >= tolT || dy >= tolY {
			continue
		}
		if d := math.Hypot(dt/tolT, dy/tolY); d < dist {
			best, found, dist = p, true, d
		}
	}
	return best, found
}

// Click toggles the marker under (t, y), if any.
func (a *Annotations) Click(o *Overlay, t, y float64) (Point, bool) {
	p, ok := a.HitTest(o, t, y)
	if ok {
		a.Toggle(p.Key)
	}
	return p, ok
}

// Shown returns the visible points of o in curve order.
func (a *Annotations) Shown(o *Overlay) []Point {
	var pts []Point
	for _, p := range o.Points() {
		if a.Visible(p.Key) {
			pts = append(pts, p)
		}
	}
	return pts
}
