package physics

import (
	"math"

	"github.com/san-kum/pidlab/internal/dynamo"
)

// Pendulum is a damped rigid pendulum with a torque motor at the pivot.
// State is [theta, omega]; theta = 0 hangs down.
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    1.0,
		Length:  1.0,
		Damping: 0.1,
		Gravity: 9.81,
	}
}

func (p *Pendulum) StateDim() int   { return 2 }
func (p *Pendulum) ControlDim() int { return 1 }

func (p *Pendulum) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	theta, omega := x[0], x[1]
	inertia := p.Mass * p.Length * p.Length
	alpha := (input(u) - p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta)) / inertia
	return dynamo.State{omega, alpha}
}

// HoldingTorque is the torque that keeps the pendulum still at theta.
func (p *Pendulum) HoldingTorque(theta float64) float64 {
	return p.Mass * p.Gravity * p.Length * math.Sin(theta)
}

func (p *Pendulum) params() []param {
	return []param{
		{"mass", &p.Mass, true},
		{"length", &p.Length, true},
		{"damping", &p.Damping, false},
		{"gravity", &p.Gravity, false},
	}
}

func (p *Pendulum) GetParams() map[string]float64 { return getParams(p.params()) }

func (p *Pendulum) SetParam(name string, value float64) error {
	return setParam(p.params(), name, value)
}
