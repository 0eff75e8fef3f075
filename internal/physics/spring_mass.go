package physics

import "github.com/san-kum/pidlab/internal/dynamo"

const (
	DefaultMass      = 1.0
	DefaultStiffness = 10.0
	DefaultDamping   = 0.5
)

// SpringMass is a damped oscillator driven by a force on the mass.
// State is [position, velocity].
type SpringMass struct {
	Mass      float64
	Stiffness float64
	Damping   float64
}

func NewSpringMass() *SpringMass {
	return &SpringMass{
		Mass:      DefaultMass,
		Stiffness: DefaultStiffness,
		Damping:   DefaultDamping,
	}
}

func (s *SpringMass) StateDim() int   { return 2 }
func (s *SpringMass) ControlDim() int { return 1 }

func (s *SpringMass) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	pos, vel := x[0], x[1]
	force := -s.Stiffness*pos - s.Damping*vel + input(u)
	return dynamo.State{vel, force / s.Mass}
}

func (s *SpringMass) Energy(x dynamo.State) float64 {
	return 0.5*s.Mass*x[1]*x[1] + 0.5*s.Stiffness*x[0]*x[0]
}

func (s *SpringMass) params() []param {
	return []param{
		{"mass", &s.Mass, true},
		{"stiffness", &s.Stiffness, false},
		{"damping", &s.Damping, false},
	}
}

func (s *SpringMass) GetParams() map[string]float64 { return getParams(s.params()) }

func (s *SpringMass) SetParam(name string, value float64) error {
	return setParam(s.params(), name, value)
}
