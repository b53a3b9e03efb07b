package optim

import (
	"fmt"
	"math"
)

// Bounds is a closed search interval [Lo, Hi].
type Bounds struct {
	Lo float64
	Hi float64
}

func DefaultBounds() Bounds {
	return Bounds{Lo: 0.001, Hi: 1000}
}

func (b Bounds) Validate() error {
	if math.IsNaN(b.Lo) || math.IsNaN(b.Hi) || math.IsInf(b.Lo, 0) || math.IsInf(b.Hi, 0) {
		return fmt.Errorf("%w: [%g, %g] is not finite", ErrInvalidBounds, b.Lo, b.Hi)
	}
	if !(b.Lo < b.Hi) {
		return fmt.Errorf("%w: lower bound %g must be below upper bound %g", ErrInvalidBounds, b.Lo, b.Hi)
	}
	return nil
}

func (b Bounds) Clamp(x float64) float64 {
	if math.IsNaN(x) {
		return b.Lo
	}
	return math.Max(b.Lo, math.Min(b.Hi, x))
}

// boxTransform maps the unbounded line onto the interval through tanh. For
// strictly positive intervals the map works on log x so that every decade
// gets the same share of the search space.
type boxTransform struct {
	log       bool
	mid, half float64
}

// edge keeps atanh finite at the interval ends.
const edge = 1 - 1e-9

func newBoxTransform(b Bounds) boxTransform {
	lo, hi := b.Lo, b.Hi
	useLog := lo > 0
	if useLog {
		lo, hi = math.Log(lo), math.Log(hi)
	}
	return boxTransform{log: useLog, mid: (lo + hi) / 2, half: (hi - lo) / 2}
}

func (t boxTransform) toX(y float64) float64 {
	u := t.mid + t.half*math.Tanh(y)
	if t.log {
		return math.Exp(u)
	}
	return u
}

func (t boxTransform) toY(x float64) float64 {
	u := x
	if t.log {
		u = math.Log(x)
	}
	r := (u - t.mid) / t.half
	return math.Atanh(math.Max(-edge, math.Min(edge, r)))
}

// fromUnit maps [0, 1] onto the interval along the search scale.
func (t boxTransform) fromUnit(r float64) float64 {
	u := t.mid - t.half + 2*t.half*r
	if t.log {
		return math.Exp(u)
	}
	return u
}
