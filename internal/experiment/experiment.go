package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/pidlab/internal/config"
	"github.com/san-kum/pidlab/internal/dynamo"
)

type Config struct {
	Plant      string
	Integrator string
	Controller string
	InitState  []float64
	Dt         float64
	Duration   float64
	Params     config.ControllerConfig
}

type Experiment struct {
	cfg       Config
	simulator *dynamo.Simulator
}

func New(cfg Config) *Experiment {
	return &Experiment{cfg: cfg}
}

func (e *Experiment) Setup(dyn dynamo.System, integrator dynamo.Integrator, controller dynamo.Controller, metrics []dynamo.Metric) error {
	e.simulator = dynamo.New(dyn, integrator, controller)
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	x0 := make(dynamo.State, len(e.cfg.InitState))
	copy(x0, e.cfg.InitState)

	simCfg := dynamo.Config{
		Dt:            e.cfg.Dt,
		Duration:      e.cfg.Duration,
		ValidateState: true,
	}

	return e.simulator.Run(ctx, x0, simCfg)
}

func (e *Experiment) Config() Config {
	return e.cfg
}

// GetSimulator returns the underlying simulator, e.g. to attach observers.
func (e *Experiment) GetSimulator() *dynamo.Simulator {
	return e.simulator
}

// Build validates cfg and wires a ready-to-run experiment from the registry.
func (r *Registry) Build(cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	plant, err := r.GetPlant(cfg.Plant)
	if err != nil {
		return nil, err
	}
	if tunable, ok := plant.(dynamo.Configurable); ok {
		for k, v := range cfg.PlantParams {
			if err := tunable.SetParam(k, v); err != nil {
				return nil, fmt.Errorf("plant_params: %w", err)
			}
		}
	}

	integ, err := r.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	ctrl, err := r.GetController(cfg.Controller, cfg.ControllerParams, plant, cfg.Dt)
	if err != nil {
		return nil, err
	}

	exp := New(Config{
		Plant:      cfg.Plant,
		Integrator: cfg.Integrator,
		Controller: cfg.Controller,
		InitState:  cfg.GetInitState(),
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Params:     cfg.ControllerParams,
	})
	if err := exp.Setup(plant, integ, ctrl, r.DefaultMetrics(cfg.ControllerParams)); err != nil {
		return nil, err
	}
	return exp, nil
}

// FromConfig builds an experiment against the default registry.
func FromConfig(cfg *config.Config) (*Experiment, error) {
	return NewRegistry().Build(cfg)
}
