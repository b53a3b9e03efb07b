package lti

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// singularTol bounds the relative size of 1 - H below which the open loop
// cannot be recovered from a closed loop.
const singularTol = 1e-12

// TransferFunction is a rational function of the Laplace variable. Values are
// immutable: every operation returns a new TransferFunction and the
// coefficient slices are never handed out for mutation.
type TransferFunction struct {
	num []float64
	den []float64
}

// New validates and copies the coefficients. Leading zeros are trimmed; the
// denominator must keep a non-zero leading coefficient.
func New(num, den []float64) (TransferFunction, error) {
	if len(num) == 0 || len(den) == 0 {
		return TransferFunction{}, fmt.Errorf("%w: empty coefficient list", ErrInvalidSystem)
	}
	if !allFinite(num) || !allFinite(den) {
		return TransferFunction{}, fmt.Errorf("%w: non-finite coefficient", ErrInvalidSystem)
	}
	if maxAbs(den) == 0 {
		return TransferFunction{}, fmt.Errorf("%w: zero denominator", ErrInvalidSystem)
	}
	return TransferFunction{num: trimLeading(num), den: trimLeading(den)}, nil
}

// MustNew is New for literals known to be valid.
func MustNew(num, den []float64) TransferFunction {
	tf, err := New(num, den)
	if err != nil {
		panic(err)
	}
	return tf
}

// Gain is the static transfer function k/1.
func Gain(k float64) TransferFunction {
	return TransferFunction{num: []float64{k}, den: []float64{1}}
}

func (g TransferFunction) Num() []float64 { return append([]float64(nil), g.num...) }
func (g TransferFunction) Den() []float64 { return append([]float64(nil), g.den...) }

// Order is the degree of the denominator.
func (g TransferFunction) Order() int { return len(g.den) - 1 }

// IsZero reports whether the numerator vanishes identically.
func (g TransferFunction) IsZero() bool { return maxAbs(g.num) == 0 }

// IsProper reports deg(num) <= deg(den).
func (g TransferFunction) IsProper() bool {
	return g.IsZero() || len(g.num) <= len(g.den)
}

// Eval evaluates G(s).
func (g TransferFunction) Eval(s complex128) complex128 {
	return polyEval(g.num, s) / polyEval(g.den, s)
}

func (g TransferFunction) String() string {
	return fmt.Sprintf("(%s) / (%s)", polyString(g.num), polyString(g.den))
}

// Series cascades g1 and g2.
func Series(g1, g2 TransferFunction) TransferFunction {
	return TransferFunction{
		num: trimLeading(polyMul(g1.num, g2.num)),
		den: trimLeading(polyMul(g1.den, g2.den)),
	}
}

// Feedback closes a unity negative-feedback loop around g: H = G / (1 + G).
func Feedback(g TransferFunction) TransferFunction {
	return TransferFunction{
		num: append([]float64(nil), g.num...),
		den: trimLeading(polyAdd(g.den, g.num)),
	}
}

// RecoverOpenLoop inverts Feedback: G = H / (1 - H). The result is exact
// only when h was produced by unity feedback; for any other closed loop it
// is the unity-feedback open loop that would reproduce h.
func RecoverOpenLoop(h TransferFunction) (TransferFunction, error) {
	den := polySub(h.den, h.num)
	if maxAbs(den) <= singularTol*maxAbs(h.den) {
		return TransferFunction{}, ErrSingularInverse
	}
	den = trimLeading(den)
	if math.Abs(den[0]) <= singularTol*maxAbs(h.den) {
		return TransferFunction{}, ErrSingularInverse
	}
	return TransferFunction{num: append([]float64(nil), h.num...), den: den}, nil
}

// Poles returns the roots of the denominator, computed as the eigenvalues of
// its companion matrix. A denominator that vanished, as Feedback produces
// when 1 + G is identically zero, is ErrInvalidSystem.
func Poles(g TransferFunction) ([]complex128, error) {
	return roots(g.den)
}

// Zeros returns the roots of the numerator.
func Zeros(g TransferFunction) ([]complex128, error) {
	if g.IsZero() {
		return nil, nil
	}
	return roots(g.num)
}

// IsStable reports whether every pole lies strictly in the open left half
// plane. A failed eigen decomposition counts as unstable.
func IsStable(g TransferFunction) bool {
	poles, err := Poles(g)
	if err != nil {
		return false
	}
	return AllStable(poles)
}

// AllStable reports whether every pole has a strictly negative real part.
func AllStable(poles []complex128) bool {
	for _, p := range poles {
		if real(p) >= 0 || cmplx.IsNaN(p) {
			return false
		}
	}
	return true
}

// DCGain is G(0). It is infinite for systems with a pole at the origin.
func DCGain(g TransferFunction) float64 {
	n := g.num[len(g.num)-1]
	d := g.den[len(g.den)-1]
	if d == 0 {
		return math.Copysign(math.Inf(1), n)
	}
	return n / d
}

func roots(p []float64) ([]complex128, error) {
	if maxAbs(p) == 0 {
		return nil, fmt.Errorf("%w: zero polynomial has no roots", ErrInvalidSystem)
	}
	p = trimLeading(p)
	n := len(p) - 1
	if n < 1 {
		return nil, nil
	}

	comp := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		comp.Set(0, j, -p[j+1]/p[0])
	}
	for i := 1; i < n; i++ {
		comp.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(comp, mat.EigenNone); !ok {
		return nil, fmt.Errorf("%w: eigen decomposition of companion matrix failed", ErrInvalidSystem)
	}
	return eig.Values(nil), nil
}

func polyString(p []float64) string {
	var b strings.Builder
	deg := len(p) - 1
	for i, c := range p {
		if c == 0 && len(p) > 1 {
			continue
		}
		if b.Len() > 0 {
			if c < 0 {
				b.WriteString(" - ")
				c = -c
			} else {
				b.WriteString(" + ")
			}
		}
		pow := deg - i
		switch {
		case pow == 0:
			fmt.Fprintf(&b, "%g", c)
		case c == 1:
			b.WriteString(sPow(pow))
		default:
			fmt.Fprintf(&b, "%g%s", c, sPow(pow))
		}
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}

func sPow(n int) string {
	if n == 1 {
		return "s"
	}
	return fmt.Sprintf("s^%d", n)
}
