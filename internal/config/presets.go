package config

import "sort"

var Presets = map[string]map[string]*Config{
	"thermal": {
		"heater": {
			Plant: "thermal", Integrator: "rk4", Controller: "pid", Dt: 0.1, Duration: 600,
			ControllerParams: ControllerConfig{Kp: 0.5, Ki: 0.02, ControlGain: 0.5, Saturation: 1, Setpoint: 60},
		},
		"windup": {
			Plant: "thermal", Integrator: "rk4", Controller: "pid", Dt: 0.1, Duration: 600,
			ControllerParams: ControllerConfig{Kp: 0.5, Ki: 0.02, ControlGain: 0, Saturation: 1, Setpoint: 60},
		},
		"open_loop": {
			Plant: "thermal", Integrator: "rk4", Controller: "constant", Dt: 0.1, Duration: 600,
			ControllerParams: ControllerConfig{Output: 0.5, Setpoint: 60},
		},
	},
	"dc_motor": {
		"speed": {
			Plant: "dc_motor", Integrator: "rk4", Controller: "pid", Dt: 0.001, Duration: 5,
			ControllerParams: ControllerConfig{Kp: 100, Ki: 200, Kd: 1, TimeConstant: 0.01, ControlGain: 5, Saturation: 24, Setpoint: 1},
		},
		"float32": {
			Plant: "dc_motor", Integrator: "rk4", Controller: "pid", Dt: 0.001, Duration: 5,
			ControllerParams: ControllerConfig{Kp: 100, Ki: 200, Kd: 1, TimeConstant: 0.01, ControlGain: 5, Saturation: 24, Setpoint: 1, Precision: "float32"},
		},
	},
	"spring_mass": {
		"position": {
			Plant: "spring_mass", Integrator: "rk4", Controller: "pid", Dt: 0.01, Duration: 20,
			ControllerParams: ControllerConfig{Kp: 40, Ki: 30, Kd: 8, TimeConstant: 0.05, ControlGain: 2, Saturation: 20, Setpoint: 1},
		},
	},
	"pendulum": {
		"hold": {
			Plant: "pendulum", Integrator: "rk4", Controller: "pid", Dt: 0.01, Duration: 20,
			ControllerParams: ControllerConfig{Kp: 30, Ki: 10, Kd: 5, TimeConstant: 0.02, ControlGain: 1, Saturation: 8, Setpoint: 0.5},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(plant, preset string) *Config {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	cfg, ok := plantPresets[preset]
	if !ok {
		return nil
	}
	c := cfg.Clone()
	if c.ControllerParams.Precision == "" {
		c.ControllerParams.Precision = DefaultPrecision
	}
	return c
}

func ListPresets(plant string) []string {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(plantPresets))
	for name := range plantPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultPresets names the preset each plant starts from when none is given.
var DefaultPresets = map[string]string{
	"thermal":     "heater",
	"dc_motor":    "speed",
	"spring_mass": "position",
	"pendulum":    "hold",
}

// ForPlant returns the plant's default preset, or DefaultConfig retargeted at
// plant when it has none.
func ForPlant(plant string) *Config {
	if name, ok := DefaultPresets[plant]; ok {
		if cfg := GetPreset(plant, name); cfg != nil {
			return cfg
		}
	}
	cfg := DefaultConfig()
	cfg.Plant = plant
	return cfg
}
