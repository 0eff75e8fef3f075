package integrators

import "github.com/san-kum/pidlab/internal/dynamo"

// RK4 is the classic fourth order Runge-Kutta method. The control input is
// held constant over the step (zero-order hold), matching a sampled loop.
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

func (r *RK4) stage(dyn dynamo.System, x, k dynamo.State, scale float64, u dynamo.Control, t float64, out dynamo.State) {
	for i := range x {
		r.scratch[i] = x[i] + scale*k[i]
	}
	copy(out, dyn.Derive(r.scratch, u, t))
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k1, dyn.Derive(x, u, t))
	r.stage(dyn, x, r.k1, dt*0.5, u, t+dt*0.5, r.k2)
	r.stage(dyn, x, r.k2, dt*0.5, u, t+dt*0.5, r.k3)
	r.stage(dyn, x, r.k3, dt, u, t+dt, r.k4)

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return result
}
