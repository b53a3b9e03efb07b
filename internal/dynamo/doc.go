// Package dynamo provides the core primitives for continuous-time simulation.
//
// The package defines the interfaces shared by the plant realizations, the
// numerical integrators and the closed-loop simulator:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator
//   - [AdaptiveIntegrator]: integrator with error-controlled step size
//   - [Controller]: feedback law computing the control input
//   - [Metric]: scalar observer accumulated over a run
//
// # Example
//
//	ss, _ := lti.Realize(plant)
//	integ := integrators.NewRK4()
//	x = integ.Step(ss, x, dynamo.Control{1}, t, dt)
//
// # Thread Safety
//
// States are plain slices and are never shared between runs. Integrators
// that keep scratch buffers (RK4) must not be shared between goroutines;
// create one per simulation.
package dynamo
