package lti

import (
	"math"
)

// StepInfo summarizes a unit-step response.
type StepInfo struct {
	RiseTime     float64 `json:"rise_time"`
	SettlingTime float64 `json:"settling_time"`
	SettlingMin  float64 `json:"settling_min"`
	SettlingMax  float64 `json:"settling_max"`
	Peak         float64 `json:"peak"`
	PeakTime     float64 `json:"peak_time"`
	SteadyState  float64 `json:"steady_state"`
	Undershoot   float64 `json:"undershoot"`
}

// Overshoot is the percentage by which the peak exceeds the steady-state
// value, or 0 when it does not.
func (s StepInfo) Overshoot() float64 {
	ss := math.Abs(s.SteadyState)
	if ss == 0 || s.Peak <= ss {
		return 0
	}
	return (s.Peak - ss) / ss * 100
}

// Options controls how characteristics are extracted.
type Options struct {
	// SettlingBand is the half-width of the settling band relative to the
	// steady-state value.
	SettlingBand float64
	RiseLow      float64
	RiseHigh     float64
	// Method simulates the response; nil selects ZOH.
	Method Simulator
	// FinalTime and Samples override the automatic horizon when positive.
	FinalTime float64
	Samples   int
}

func DefaultOptions() Options {
	return Options{
		SettlingBand: 0.02,
		RiseLow:      0.1,
		RiseHigh:     0.9,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SettlingBand <= 0 {
		o.SettlingBand = d.SettlingBand
	}
	if o.RiseLow <= 0 || o.RiseHigh <= o.RiseLow || o.RiseHigh >= 1 {
		o.RiseLow, o.RiseHigh = d.RiseLow, d.RiseHigh
	}
	return o
}

// Grid returns the time grid Analyze would simulate g on.
func (o Options) Grid(g TransferFunction) []float64 {
	finalTime, samples := IdealHorizon(g)
	if o.FinalTime > 0 {
		finalTime = o.FinalTime
	}
	if o.Samples > 1 {
		samples = o.Samples
	}
	return Linspace(0, finalTime, samples)
}

// Response is a simulated step response together with its characteristics.
type Response struct {
	Trace Trace
	Info  StepInfo
}

// Characteristics simulates g over its automatic horizon and extracts the
// step-response characteristics.
func Characteristics(g TransferFunction, opts Options) (StepInfo, error) {
	resp, err := Analyze(g, opts)
	if err != nil {
		return StepInfo{}, err
	}
	return resp.Info, nil
}

// Analyze is Characteristics that also returns the simulated trace.
func Analyze(g TransferFunction, opts Options) (*Response, error) {
	opts = opts.withDefaults()
	if !IsStable(g) {
		return nil, simError("system is not asymptotically stable", ErrNotSettled)
	}

	trace, err := StepResponse(g, opts.Grid(g), opts.Method)
	if err != nil {
		return nil, err
	}
	info, err := InfoFromTrace(trace, DCGain(g), opts)
	if err != nil {
		return nil, err
	}
	return &Response{Trace: trace, Info: info}, nil
}

// InfoFromTrace extracts characteristics from an already simulated trace
// whose steady-state value is known.
func InfoFromTrace(trace Trace, steadyState float64, opts Options) (StepInfo, error) {
	opts = opts.withDefaults()
	t, y := trace.Times, trace.Outputs
	if len(y) == 0 || len(t) != len(y) {
		return StepInfo{}, simError("empty trace", nil)
	}
	if math.IsNaN(steadyState) || math.IsInf(steadyState, 0) {
		return StepInfo{}, simError("steady-state value is not finite", ErrNotSettled)
	}
	absSS := math.Abs(steadyState)
	if absSS < 1e-15 {
		return StepInfo{}, simError("steady-state value is zero", ErrNotSettled)
	}

	info := StepInfo{SteadyState: steadyState}

	for i, v := range y {
		if a := math.Abs(v); a > info.Peak {
			info.Peak, info.PeakTime = a, t[i]
		}
	}

	sign := math.Copysign(1, steadyState)
	lowIdx, highIdx := -1, -1
	for i, v := range y {
		v *= sign
		if lowIdx < 0 && v >= opts.RiseLow*absSS {
			lowIdx = i
		}
		if v >= opts.RiseHigh*absSS {
			highIdx = i
			break
		}
	}
	if lowIdx >= 0 && highIdx >= 0 {
		info.RiseTime = t[highIdx] - t[lowIdx]
	}

	band := opts.SettlingBand * absSS
	last := -1
	for i, v := range y {
		if math.Abs(v-steadyState) > band {
			last = i
		}
	}
	switch {
	case last == len(y)-1:
		return StepInfo{}, &SimulationError{Sample: last, Time: t[last], Reason: "response outside settling band at end of horizon", Wrapped: ErrNotSettled}
	case last < 0:
		info.SettlingTime = t[0]
	default:
		e0 := math.Abs(y[last]-steadyState) - band
		e1 := math.Abs(y[last+1]-steadyState) - band
		frac := 1.0
		if e0-e1 > 0 {
			frac = e0 / (e0 - e1)
		}
		info.SettlingTime = t[last] + frac*(t[last+1]-t[last])
	}

	from := 0
	if highIdx >= 0 {
		from = highIdx
	}
	info.SettlingMin, info.SettlingMax = math.Inf(1), math.Inf(-1)
	for _, v := range y[from:] {
		info.SettlingMin = math.Min(info.SettlingMin, v)
		info.SettlingMax = math.Max(info.SettlingMax, v)
	}

	if minY := minScaled(y, sign); minY < 0 {
		info.Undershoot = -minY / absSS * 100
	}
	return info, nil
}

func minScaled(y []float64, k float64) float64 {
	m := math.Inf(1)
	for _, v := range y {
		m = math.Min(m, k*v)
	}
	return m
}
