package integrators

import "github.com/san-kum/ptune/internal/dynamo"

// Euler is the explicit first-order method. It is only accurate for steps
// well below the fastest closed-loop time constant.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return x.AddScaled(dyn.Derive(x, u, t), dt)
}
