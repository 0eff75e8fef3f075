package control

import (
	"fmt"

	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/pid"
)

// PIDParams configures a sampled PID loop around one plant state component.
type PIDParams struct {
	Kp, Ki, Kd   float64
	TimeConstant float64
	ControlGain  float64
	Saturation   float64
	Setpoint     float64
	// Index of the state component that is regulated.
	Index int
	// SampleTime is used for the first sample and whenever t does not advance.
	SampleTime float64
}

// PID closes the loop over a dynamo.System with a pid.Controller running at
// precision T. The simulation stays in float64; only the controller
// arithmetic happens in T.
type PID[T pid.Float] struct {
	params PIDParams
	ctrl   *pid.Controller[T]
	prevT  float64
	first  bool
}

func NewPID[T pid.Float](p PIDParams) (*PID[T], error) {
	if err := pid.ValidateSampling(p.SampleTime, p.TimeConstant); err != nil {
		return nil, fmt.Errorf("sample time: %w", err)
	}
	if p.Index < 0 {
		return nil, fmt.Errorf("%w: state index %d", dynamo.ErrParameterBounds, p.Index)
	}
	ctrl, err := pid.New(toConfig[T](p))
	if err != nil {
		return nil, err
	}
	return &PID[T]{params: p, ctrl: ctrl, first: true}, nil
}

func toConfig[T pid.Float](p PIDParams) pid.Config[T] {
	return pid.Config[T]{
		ProportionGain: T(p.Kp),
		IntegralGain:   T(p.Ki),
		DerivativeGain: T(p.Kd),
		TimeConstant:   T(p.TimeConstant),
		ControlGain:    T(p.ControlGain),
		Saturation:     T(p.Saturation),
	}
}

func (c *PID[T]) Compute(x dynamo.State, t float64) dynamo.Control {
	measured := 0.0
	if c.params.Index < len(x) {
		measured = x[c.params.Index]
	}

	dt := c.params.SampleTime
	if !c.first {
		if elapsed := t - c.prevT; elapsed > 0 {
			dt = elapsed
		}
	}
	c.first = false
	c.prevT = t

	u := c.ctrl.Step(T(c.params.Setpoint-measured), T(dt))
	return dynamo.Control{float64(u)}
}

// Reset clears the controller history and restarts sampling.
func (c *PID[T]) Reset() {
	c.ctrl.Reset()
	c.first = true
	c.prevT = 0
}

// Diagnostics returns the controller state widened to float64.
func (c *PID[T]) Diagnostics() pid.State[float64] {
	s := c.ctrl.State()
	return pid.State[float64]{
		PrevError:        float64(s.PrevError),
		ErrorIntegral:    float64(s.ErrorIntegral),
		ErrorDerivative:  float64(s.ErrorDerivative),
		SatError:         float64(s.SatError),
		PrevSatError:     float64(s.PrevSatError),
		SatErrorIntegral: float64(s.SatErrorIntegral),
	}
}

// GetParams returns tunable parameters for live adjustment
func (c *PID[T]) GetParams() map[string]float64 {
	return map[string]float64{
		"kp":       c.params.Kp,
		"ki":       c.params.Ki,
		"kd":       c.params.Kd,
		"tc":       c.params.TimeConstant,
		"kc":       c.params.ControlGain,
		"sat":      c.params.Saturation,
		"setpoint": c.params.Setpoint,
	}
}

// SetParam adjusts a PID parameter. Gains are validated before they reach the
// controller; the step history is kept.
func (c *PID[T]) SetParam(name string, value float64) error {
	next := c.params
	switch name {
	case "kp":
		next.Kp = value
	case "ki":
		next.Ki = value
	case "kd":
		next.Kd = value
	case "tc":
		next.TimeConstant = value
	case "kc":
		next.ControlGain = value
	case "sat":
		next.Saturation = value
	case "setpoint":
		c.params.Setpoint = value
		return nil
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	if err := c.ctrl.SetConfig(toConfig[T](next)); err != nil {
		return err
	}
	c.params = next
	return nil
}
