package physics

import "github.com/san-kum/pidlab/internal/dynamo"

const (
	DefaultAmbient     = 20.0
	DefaultHeatCap     = 50.0
	DefaultLoss        = 0.5
	DefaultHeaterPower = 40.0
)

// Thermal is a lumped heater block: C dT/dt = P*u - k*(T - Tamb).
// State is [temperature]; u is the heater duty in [-1, 1] once saturated.
type Thermal struct {
	Ambient      float64
	HeatCapacity float64
	Loss         float64
	HeaterPower  float64
}

func NewThermal() *Thermal {
	return &Thermal{
		Ambient:      DefaultAmbient,
		HeatCapacity: DefaultHeatCap,
		Loss:         DefaultLoss,
		HeaterPower:  DefaultHeaterPower,
	}
}

func (h *Thermal) StateDim() int   { return 1 }
func (h *Thermal) ControlDim() int { return 1 }

func (h *Thermal) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	heat := h.HeaterPower*input(u) - h.Loss*(x[0]-h.Ambient)
	return dynamo.State{heat / h.HeatCapacity}
}

// Equilibrium returns the temperature held by a constant duty.
func (h *Thermal) Equilibrium(duty float64) float64 {
	return h.Ambient + h.HeaterPower*duty/h.Loss
}

func (h *Thermal) params() []param {
	return []param{
		{"ambient", &h.Ambient, false},
		{"heat_capacity", &h.HeatCapacity, true},
		{"loss", &h.Loss, true},
		{"heater_power", &h.HeaterPower, true},
	}
}

func (h *Thermal) GetParams() map[string]float64 { return getParams(h.params()) }

func (h *Thermal) SetParam(name string, value float64) error {
	return setParam(h.params(), name, value)
}
