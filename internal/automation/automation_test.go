package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/pidlab/internal/config"
	"github.com/san-kum/pidlab/internal/storage"
)

const scenarioYAML = `
name: windup
description: heater with and without back-calculation
steps:
  - name: plain
    preset: thermal/heater
    duration: 120
    params:
      kc: 0
  - name: anti_windup
    preset: thermal/heater
    duration: 120
    save: true
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "windup" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if sc.Steps[0].Params["kc"] != 0 || !sc.Steps[1].Save {
		t.Errorf("unexpected steps %+v", sc.Steps)
	}

	if _, err := LoadScenario(writeScenario(t, "name: empty\n")); !errors.Is(err, ErrEmptyScenario) {
		t.Errorf("expected ErrEmptyScenario, got %v", err)
	}
	if _, err := LoadScenario(writeScenario(t, "steps: [")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStepConfig(t *testing.T) {
	step := ScenarioStep{
		Preset:      "dc_motor/speed",
		Dt:          0.002,
		InitState:   []float64{0.5, 0},
		PlantParams: map[string]float64{"load": 0.01},
		Params:      map[string]float64{"kp": 50, "setpoint": 2},
	}
	cfg, err := step.Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Plant != "dc_motor" || cfg.Dt != 0.002 || cfg.Duration != 5 {
		t.Errorf("unexpected timing %+v", cfg)
	}
	if cfg.ControllerParams.Kp != 50 || cfg.ControllerParams.Setpoint != 2 || cfg.ControllerParams.Ki != 200 {
		t.Errorf("unexpected controller params %+v", cfg.ControllerParams)
	}
	if cfg.PlantParams["load"] != 0.01 || cfg.InitState[0] != 0.5 {
		t.Errorf("unexpected plant setup %+v", cfg)
	}
	if config.Presets["dc_motor"]["speed"].ControllerParams.Kp != 100 {
		t.Error("step must not modify the preset table")
	}

	for _, bad := range []ScenarioStep{
		{Preset: "thermal"},
		{Preset: "thermal/sauna"},
		{Params: map[string]float64{"gain": 1}},
	} {
		if _, err := bad.Config(); err == nil {
			t.Errorf("expected error for %+v", bad)
		}
	}
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	st := storage.New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	results, err := RunScenario(context.Background(), sc, st, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RunID != "" {
		t.Error("first step should not be saved")
	}
	if results[1].RunID == "" {
		t.Fatal("second step should be saved")
	}
	if results[0].Config.ControllerParams.ControlGain != 0 {
		t.Error("override not applied")
	}

	meta, err := st.Load(results[1].RunID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Gains == nil || meta.Gains.ControlGain != 0.5 {
		t.Errorf("unexpected saved gains %+v", meta.Gains)
	}
}

func TestRunScenarioStopsOnError(t *testing.T) {
	sc := &Scenario{Steps: []ScenarioStep{
		{Preset: "thermal/heater", Duration: 10},
		{Preset: "thermal/heater", Params: map[string]float64{"sat": 0}},
	}}
	results, err := RunScenario(context.Background(), sc, nil, nil)
	if err == nil {
		t.Fatal("expected error from invalid saturation")
	}
	if len(results) != 1 {
		t.Errorf("expected the first step result, got %d", len(results))
	}

	if _, err := RunScenario(context.Background(), &Scenario{}, nil, nil); !errors.Is(err, ErrEmptyScenario) {
		t.Errorf("expected ErrEmptyScenario, got %v", err)
	}
}

func TestRunSweep(t *testing.T) {
	base := config.GetPreset("thermal", "heater")
	base.Duration = 60

	results, err := RunSweep(context.Background(), &ParameterSweep{
		Base:      base,
		ParamName: "kc",
		ParamMin:  0,
		ParamMax:  1,
		NumSteps:  3,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []float64{0, 0.5, 1} {
		if results[i].ParamValue != want {
			t.Errorf("point %d: expected %g, got %g", i, want, results[i].ParamValue)
		}
		if results[i].Diverged {
			t.Errorf("point %d diverged", i)
		}
		if _, ok := results[i].Metrics["iae"]; !ok {
			t.Errorf("point %d missing iae", i)
		}
	}

	if _, err := RunSweep(context.Background(), &ParameterSweep{Base: base, ParamName: "kc"}, nil); err == nil {
		t.Error("expected error for zero steps")
	}
}

func TestRunMonteCarlo(t *testing.T) {
	results, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{
		Base:         config.GetPreset("thermal", "heater"),
		Perturbation: 2,
		NumTrials:    4,
		Tolerance:    1,
		Seed:         7,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 trials, got %d", len(results))
	}
	for _, r := range results {
		if r.InitState[0] < 18 || r.InitState[0] > 22 {
			t.Errorf("trial %d: init state %v outside perturbation", r.TrialID, r.InitState)
		}
	}
	settled, unsettled := MonteCarloStats(results)
	if settled != 4 || unsettled != 0 {
		t.Errorf("expected all trials to settle, got %d/%d", settled, unsettled)
	}
}
