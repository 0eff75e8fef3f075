package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/pidlab/internal/pid"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt          = 0.1
	DefaultDuration    = 600.0
	DefaultKp          = 0.5
	DefaultKi          = 0.02
	DefaultKd          = 0.0
	DefaultTimeConst   = 0.0
	DefaultControlGain = 0.5
	DefaultSaturation  = 1.0
	DefaultSetpoint    = 60.0
	DefaultPrecision   = "float64"
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Plant            string             `yaml:"plant"`
	Integrator       string             `yaml:"integrator"`
	Controller       string             `yaml:"controller"`
	Dt               float64            `yaml:"dt"`
	Duration         float64            `yaml:"duration"`
	// Seed is recorded with saved runs and seeds monte carlo perturbations.
	// Simulations themselves are deterministic.
	Seed             int64              `yaml:"seed"`
	InitState        []float64          `yaml:"init_state,omitempty"`
	PlantParams      map[string]float64 `yaml:"plant_params,omitempty"`
	ControllerParams ControllerConfig   `yaml:"controller_params"`
}

type ControllerConfig struct {
	Kp           float64 `yaml:"kp"`
	Ki           float64 `yaml:"ki"`
	Kd           float64 `yaml:"kd"`
	TimeConstant float64 `yaml:"time_constant"`
	ControlGain  float64 `yaml:"control_gain"`
	Saturation   float64 `yaml:"saturation"`
	Setpoint     float64 `yaml:"setpoint"`
	// Index of the regulated state component.
	Index int `yaml:"index"`
	// Precision of the controller arithmetic: float32 or float64.
	Precision string `yaml:"precision"`
	// Open-loop output for the "constant" controller.
	Output float64 `yaml:"output,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Plant:      "thermal",
		Integrator: "rk4",
		Controller: "pid",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		ControllerParams: ControllerConfig{
			Kp:           DefaultKp,
			Ki:           DefaultKi,
			Kd:           DefaultKd,
			TimeConstant: DefaultTimeConst,
			ControlGain:  DefaultControlGain,
			Saturation:   DefaultSaturation,
			Setpoint:     DefaultSetpoint,
			Precision:    DefaultPrecision,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks loop timing and, for the pid controller, the gains and
// limits, so that nothing invalid ever reaches the controller's step.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalid, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalid, c.Duration)
	}
	if c.Controller != "pid" {
		return nil
	}

	cp := c.ControllerParams
	switch cp.Precision {
	case "", "float32", "float64":
	default:
		return fmt.Errorf("%w: precision %q (want float32 or float64)", ErrInvalid, cp.Precision)
	}
	if cp.Index < 0 {
		return fmt.Errorf("%w: index must not be negative, got %d", ErrInvalid, cp.Index)
	}
	if err := cp.PIDConfig().Validate(); err != nil {
		return fmt.Errorf("controller_params: %w", err)
	}
	if err := pid.ValidateSampling(c.Dt, cp.TimeConstant); err != nil {
		return fmt.Errorf("dt: %w", err)
	}
	return nil
}

func (cc ControllerConfig) PIDConfig() pid.Config[float64] {
	return pid.Config[float64]{
		ProportionGain: cc.Kp,
		IntegralGain:   cc.Ki,
		DerivativeGain: cc.Kd,
		TimeConstant:   cc.TimeConstant,
		ControlGain:    cc.ControlGain,
		Saturation:     cc.Saturation,
	}
}

// GetInitState returns the configured initial state, or the plant's rest
// state when none is set.
func (c *Config) GetInitState() []float64 {
	if len(c.InitState) > 0 {
		out := make([]float64, len(c.InitState))
		copy(out, c.InitState)
		return out
	}
	switch c.Plant {
	case "thermal":
		ambient := 20.0
		if v, ok := c.PlantParams["ambient"]; ok {
			ambient = v
		}
		return []float64{ambient}
	case "dc_motor", "spring_mass", "pendulum":
		return []float64{0, 0}
	default:
		return nil
	}
}

// ControllerParamNames lists the keys accepted by ControllerConfig.Set.
var ControllerParamNames = []string{"kp", "ki", "kd", "tc", "kc", "sat", "setpoint"}

// Set assigns one controller parameter by its short name. The result is not
// validated; call Config.Validate before building a controller from it.
func (cc *ControllerConfig) Set(name string, value float64) error {
	switch name {
	case "kp":
		cc.Kp = value
	case "ki":
		cc.Ki = value
	case "kd":
		cc.Kd = value
	case "tc":
		cc.TimeConstant = value
	case "kc":
		cc.ControlGain = value
	case "sat":
		cc.Saturation = value
	case "setpoint":
		cc.Setpoint = value
	default:
		return fmt.Errorf("%w: unknown controller parameter %q", ErrInvalid, name)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.InitState != nil {
		out.InitState = append([]float64(nil), c.InitState...)
	}
	if c.PlantParams != nil {
		out.PlantParams = make(map[string]float64, len(c.PlantParams))
		for k, v := range c.PlantParams {
			out.PlantParams[k] = v
		}
	}
	return &out
}
