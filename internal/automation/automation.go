package automation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/san-kum/pidlab/internal/config"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/experiment"
	"github.com/san-kum/pidlab/internal/storage"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrEmptyScenario = errors.New("automation: scenario has no steps")

// Scenario defines a scripted sequence of closed-loop runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. It starts from Preset ("plant/name") when set,
// otherwise from the default config for Plant, and then applies the rest.
type ScenarioStep struct {
	Name        string             `yaml:"name"`
	Preset      string             `yaml:"preset"`
	Plant       string             `yaml:"plant"`
	Integrator  string             `yaml:"integrator"`
	Controller  string             `yaml:"controller"`
	Duration    float64            `yaml:"duration"`
	Dt          float64            `yaml:"dt"`
	InitState   []float64          `yaml:"init_state"`
	PlantParams map[string]float64 `yaml:"plant_params"`
	Params      map[string]float64 `yaml:"params"`
	Save        bool               `yaml:"save"`
}

type StepResult struct {
	Name    string
	RunID   string
	Config  *config.Config
	Result  *dynamo.Result
	Metrics map[string]float64
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	return &scenario, nil
}

// Config resolves the step into a full run configuration.
func (s ScenarioStep) Config() (*config.Config, error) {
	var cfg *config.Config
	if s.Preset != "" {
		plant, name, ok := strings.Cut(s.Preset, "/")
		if !ok {
			return nil, fmt.Errorf("preset %q: want plant/name", s.Preset)
		}
		cfg = config.GetPreset(plant, name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	if s.Plant != "" {
		cfg.Plant = s.Plant
	}
	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Controller != "" {
		cfg.Controller = s.Controller
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if len(s.InitState) > 0 {
		cfg.InitState = append([]float64(nil), s.InitState...)
	}
	if len(s.PlantParams) > 0 {
		if cfg.PlantParams == nil {
			cfg.PlantParams = make(map[string]float64, len(s.PlantParams))
		}
		for k, v := range s.PlantParams {
			cfg.PlantParams[k] = v
		}
	}
	for k, v := range s.Params {
		if err := cfg.ControllerParams.Set(k, v); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// RunScenario executes all steps in order. Steps marked save are written to
// st when it is non-nil. The results of completed steps are returned along
// with the first error.
func RunScenario(ctx context.Context, scenario *Scenario, st *storage.Store, log *zap.Logger) ([]StepResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(scenario.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step%d", i+1)
		}
		log.Info("scenario step", zap.String("scenario", scenario.Name), zap.Int("step", i+1), zap.String("name", name))

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp, err := experiment.FromConfig(cfg)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		for _, e := range result.Errors {
			log.Warn("step diverged", zap.String("name", name), zap.Error(e))
		}

		sr := StepResult{Name: name, Config: cfg, Result: result, Metrics: result.Metrics}
		if step.Save && st != nil {
			runID, err := st.Save(cfg, result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			sr.RunID = runID
			log.Debug("step saved", zap.String("name", name), zap.String("run_id", runID))
		}

		results = append(results, sr)
	}

	return results, nil
}

// ParameterSweep runs one configuration across evenly spaced values of a
// single controller parameter.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
	Diverged   bool
}

// RunSweep executes a parameter sweep
func RunSweep(ctx context.Context, sweep *ParameterSweep, log *zap.Logger) ([]SweepResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := sweep.Base.Clone()
		if err := cfg.ControllerParams.Set(sweep.ParamName, paramVal); err != nil {
			return nil, err
		}
		exp, err := experiment.FromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, paramVal, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return nil, err
		}

		results = append(results, SweepResult{
			ParamValue: paramVal,
			Metrics:    result.Metrics,
			Diverged:   len(result.Errors) > 0,
		})
		log.Debug("sweep point", zap.Int("index", i+1), zap.String("param", sweep.ParamName), zap.Float64("value", paramVal))
	}

	return results, nil
}

// MonteCarloConfig perturbs the initial state of Base uniformly by up to
// Perturbation per component.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	NumTrials    int
	// Tolerance on the final tracking error for a trial to count as settled.
	Tolerance float64
	Seed      int64
}

type MonteCarloResult struct {
	TrialID    int
	InitState  dynamo.State
	FinalState dynamo.State
	Settled    bool
}

// RunMonteCarlo executes multiple trials with random perturbations
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, log *zap.Logger) ([]MonteCarloResult, error) {
	if log == nil {
		log = zap.NewNop()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	base := cfg.Base.GetInitState()
	cp := cfg.Base.ControllerParams
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	for trial := 0; trial < cfg.NumTrials; trial++ {
		initState := make(dynamo.State, len(base))
		for i, v := range base {
			initState[i] = v + (rng.Float64()-0.5)*2*cfg.Perturbation
		}

		runCfg := cfg.Base.Clone()
		runCfg.InitState = initState
		exp, err := experiment.FromConfig(runCfg)
		if err != nil {
			return nil, err
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return nil, err
		}

		var final dynamo.State
		settled := len(result.Errors) == 0
		if len(result.States) > 0 {
			final = result.States[len(result.States)-1]
			if cp.Index < len(final) && math.Abs(cp.Setpoint-final[cp.Index]) > cfg.Tolerance {
				settled = false
			}
		}

		results = append(results, MonteCarloResult{
			TrialID:    trial,
			InitState:  initState,
			FinalState: final,
			Settled:    settled,
		})

		if (trial+1)%10 == 0 {
			log.Info("monte carlo progress", zap.Int("done", trial+1), zap.Int("trials", cfg.NumTrials))
		}
	}

	return results, nil
}

// MonteCarloStats counts settled and unsettled trials.
func MonteCarloStats(results []MonteCarloResult) (settled int, unsettled int) {
	for _, r := range results {
		if r.Settled {
			settled++
		} else {
			unsettled++
		}
	}
	return
}
