package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

type Control []float64

func (u Control) Clone() Control {
	c := make(Control, len(u))
	copy(c, u)
	return c
}

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type Controller interface {
	Compute(x State, t float64) Control
}

// Resetter is implemented by controllers that carry history between steps.
type Resetter interface {
	Reset()
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

// Configurable exposes named tunable parameters for live adjustment.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Config struct {
	Dt            float64
	Duration      float64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		ValidateState: true,
	}
}

type Result struct {
	States     []State
	Controls   []Control
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

// Series extracts one state component over time.
func (r *Result) Series(index int) []float64 {
	out := make([]float64, 0, len(r.States))
	for _, s := range r.States {
		if index < len(s) {
			out = append(out, s[index])
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// ControlSeries extracts one control channel over time.
func (r *Result) ControlSeries(index int) []float64 {
	out := make([]float64, 0, len(r.Controls))
	for _, u := range r.Controls {
		if index < len(u) {
			out = append(out, u[index])
		} else {
			out = append(out, 0)
		}
	}
	return out
}
