package physics

import "github.com/san-kum/pidlab/internal/dynamo"

// DCMotor is a brushed motor with armature dynamics.
// State is [omega, current]; u is the terminal voltage.
//
//	J dω/dt = Kt*i - b*ω - τload
//	L di/dt = V - R*i - Ke*ω
type DCMotor struct {
	Inertia    float64
	Friction   float64
	Torque     float64 // Kt, also used as back-EMF constant
	Resistance float64
	Inductance float64
	Load       float64
}

func NewDCMotor() *DCMotor {
	return &DCMotor{
		Inertia:    0.01,
		Friction:   0.1,
		Torque:     0.01,
		Resistance: 1.0,
		Inductance: 0.5,
	}
}

func (m *DCMotor) StateDim() int   { return 2 }
func (m *DCMotor) ControlDim() int { return 1 }

func (m *DCMotor) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	omega, current := x[0], x[1]
	alpha := (m.Torque*current - m.Friction*omega - m.Load) / m.Inertia
	di := (input(u) - m.Resistance*current - m.Torque*omega) / m.Inductance
	return dynamo.State{alpha, di}
}

func (m *DCMotor) params() []param {
	return []param{
		{"inertia", &m.Inertia, true},
		{"friction", &m.Friction, false},
		{"torque_constant", &m.Torque, true},
		{"resistance", &m.Resistance, true},
		{"inductance", &m.Inductance, true},
		{"load", &m.Load, false},
	}
}

func (m *DCMotor) GetParams() map[string]float64 { return getParams(m.params()) }

func (m *DCMotor) SetParam(name string, value float64) error {
	return setParam(m.params(), name, value)
}
