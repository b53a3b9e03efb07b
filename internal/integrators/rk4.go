package integrators

import "github.com/san-kum/ptune/internal/dynamo"

// RK4 is the classic fourth-order Runge-Kutta method. It keeps scratch
// buffers between steps, so one instance serves one simulation at a time.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k1, dyn.Derive(x, u, t))

	r.stage(x, r.k1, 0.5*dt)
	copy(r.k2, dyn.Derive(r.scratch, u, t+0.5*dt))

	r.stage(x, r.k2, 0.5*dt)
	copy(r.k3, dyn.Derive(r.scratch, u, t+0.5*dt))

	r.stage(x, r.k3, dt)
	copy(r.k4, dyn.Derive(r.scratch, u, t+dt))

	for i := 0; i < n; i++ {
		r.scratch[i] = r.k1[i] + 2*r.k2[i] + 2*r.k3[i] + r.k4[i]
	}
	return x.AddScaled(r.scratch, dt/6)
}

func (r *RK4) stage(x, k dynamo.State, h float64) {
	for i := range x {
		r.scratch[i] = x[i] + h*k[i]
	}
}
