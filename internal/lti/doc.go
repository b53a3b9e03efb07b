// Package lti models continuous-time, single-input single-output linear
// time-invariant systems as rational transfer functions.
//
// It supplies everything the tuner needs from a linear-systems library:
//
//   - [TransferFunction]: immutable numerator/denominator pair
//   - [Feedback], [Series], [RecoverOpenLoop]: loop algebra
//   - [Poles], [IsStable], [DCGain]: analytic properties
//   - [StepResponse]: unit-step simulation over an explicit time grid
//   - [Characteristics], [Analyze]: settling time, peak, steady state
//
// # Simulation
//
// Step responses are computed on the controllable canonical realization of
// the transfer function. The default [ZOH] simulator discretizes it exactly
// with a matrix exponential, which is accurate for the step input at any
// sample spacing. [Integrating] integrates the same realization with one of
// the numerical integrators instead.
//
//	plant := lti.MustNew([]float64{1}, []float64{1, -2})
//	closed := lti.Feedback(lti.Series(lti.Gain(4), plant))
//	info, err := lti.Characteristics(closed, lti.DefaultOptions())
//
// # Errors
//
// Every simulation failure is a [*SimulationError]; errors.Is reports it as
// [ErrSimulation], and additionally as [ErrNotSettled] when the response
// never stays inside the settling band.
package lti
