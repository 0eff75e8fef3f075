package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/pidlab/internal/config"
	"github.com/san-kum/pidlab/internal/control"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/integrators"
	"github.com/san-kum/pidlab/internal/metrics"
	"github.com/san-kum/pidlab/internal/physics"
)

// ControllerFactory builds a controller for a plant sampled every dt seconds.
type ControllerFactory func(cc config.ControllerConfig, plant dynamo.System, dt float64) (dynamo.Controller, error)

type Registry struct {
	plants      map[string]func() dynamo.System
	integrators map[string]func() dynamo.Integrator
	controllers map[string]ControllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		plants:      make(map[string]func() dynamo.System),
		integrators: make(map[string]func() dynamo.Integrator),
		controllers: make(map[string]ControllerFactory),
	}

	r.plants["thermal"] = func() dynamo.System { return physics.NewThermal() }
	r.plants["dc_motor"] = func() dynamo.System { return physics.NewDCMotor() }
	r.plants["spring_mass"] = func() dynamo.System { return physics.NewSpringMass() }
	r.plants["pendulum"] = func() dynamo.System { return physics.NewPendulum() }

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }

	r.controllers["none"] = func(cc config.ControllerConfig, plant dynamo.System, dt float64) (dynamo.Controller, error) {
		return control.NewNone(plant.ControlDim()), nil
	}
	r.controllers["constant"] = func(cc config.ControllerConfig, plant dynamo.System, dt float64) (dynamo.Controller, error) {
		return control.NewConstant(cc.Output), nil
	}
	r.controllers["pid"] = newPID

	return r
}

// newPID picks the controller precision once, at construction.
func newPID(cc config.ControllerConfig, plant dynamo.System, dt float64) (dynamo.Controller, error) {
	if cc.Index >= plant.StateDim() {
		return nil, fmt.Errorf("%w: index %d, plant has %d states", dynamo.ErrDimensionMismatch, cc.Index, plant.StateDim())
	}
	p := control.PIDParams{
		Kp:           cc.Kp,
		Ki:           cc.Ki,
		Kd:           cc.Kd,
		TimeConstant: cc.TimeConstant,
		ControlGain:  cc.ControlGain,
		Saturation:   cc.Saturation,
		Setpoint:     cc.Setpoint,
		Index:        cc.Index,
		SampleTime:   dt,
	}
	switch cc.Precision {
	case "float32":
		return control.NewPID[float32](p)
	case "", "float64":
		return control.NewPID[float64](p)
	default:
		return nil, fmt.Errorf("unknown precision: %s", cc.Precision)
	}
}

func (r *Registry) GetPlant(name string) (dynamo.System, error) {
	fn, ok := r.plants[name]
	if !ok {
		return nil, fmt.Errorf("unknown plant: %s (available: %v)", name, r.ListPlants())
	}
	return fn(), nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, cc config.ControllerConfig, plant dynamo.System, dt float64) (dynamo.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s (available: %v)", name, r.ListControllers())
	}
	return fn(cc, plant, dt)
}

func (r *Registry) ListPlants() []string {
	return sortedKeys(r.plants)
}

func (r *Registry) ListControllers() []string {
	return sortedKeys(r.controllers)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics scores tracking of cc.Setpoint on state cc.Index.
func (r *Registry) DefaultMetrics(cc config.ControllerConfig) []dynamo.Metric {
	ms := []dynamo.Metric{
		metrics.NewControlEffort(),
		metrics.NewIAE(cc.Setpoint, cc.Index),
		metrics.NewISE(cc.Setpoint, cc.Index),
		metrics.NewErrorStdDev(cc.Setpoint, cc.Index),
		metrics.NewOvershoot(cc.Setpoint, cc.Index),
	}
	if cc.Saturation > 0 {
		ms = append(ms, metrics.NewSaturation(cc.Saturation))
	}
	return ms
}
