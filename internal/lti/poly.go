package lti

import "math"

// Polynomials are coefficient slices ordered from the highest power down.

func trimLeading(p []float64) []float64 {
	scale := maxAbs(p)
	if scale == 0 {
		return []float64{0}
	}
	i := 0
	for i < len(p)-1 && math.Abs(p[i]) <= 1e-14*scale {
		i++
	}
	out := make([]float64, len(p)-i)
	copy(out, p[i:])
	return out
}

func polyAdd(a, b []float64) []float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]float64, n)
	for i := range a {
		out[n-len(a)+i] += a[i]
	}
	for i := range b {
		out[n-len(b)+i] += b[i]
	}
	return out
}

func polySub(a, b []float64) []float64 {
	neg := make([]float64, len(b))
	for i, v := range b {
		neg[i] = -v
	}
	return polyAdd(a, neg)
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

func polyEval(p []float64, s complex128) complex128 {
	var acc complex128
	for _, c := range p {
		acc = acc*s + complex(c, 0)
	}
	return acc
}

func maxAbs(p []float64) float64 {
	m := 0.0
	for _, v := range p {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func allFinite(p []float64) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
