package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/pidlab/internal/config"
	"github.com/san-kum/pidlab/internal/dynamo"
)

var ErrNoData = errors.New("storage: run has no samples")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Gains records the controller section a run was made with.
type Gains struct {
	Kp           float64 `json:"kp"`
	Ki           float64 `json:"ki"`
	Kd           float64 `json:"kd"`
	TimeConstant float64 `json:"time_constant"`
	ControlGain  float64 `json:"control_gain"`
	Saturation   float64 `json:"saturation"`
	Setpoint     float64 `json:"setpoint"`
	Index        int     `json:"index"`
	Precision    string  `json:"precision,omitempty"`
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Plant       string             `json:"plant"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Integrator  string             `json:"integrator"`
	Controller  string             `json:"controller"`
	Gains       *Gains             `json:"gains,omitempty"`
	PlantParams map[string]float64 `json:"plant_params,omitempty"`
	Steps       int                `json:"steps"`
	Metrics     map[string]float64 `json:"metrics"`
}

func newMetadata(cfg *config.Config, result *dynamo.Result) RunMetadata {
	now := time.Now()
	meta := RunMetadata{
		ID:          fmt.Sprintf("%s_%d", cfg.Plant, now.UnixNano()),
		Plant:       cfg.Plant,
		Timestamp:   now,
		Seed:        cfg.Seed,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Integrator:  cfg.Integrator,
		Controller:  cfg.Controller,
		PlantParams: cfg.PlantParams,
		Steps:       len(result.States),
		Metrics:     result.Metrics,
	}
	if cfg.Controller == "pid" {
		cp := cfg.ControllerParams
		meta.Gains = &Gains{
			Kp:           cp.Kp,
			Ki:           cp.Ki,
			Kd:           cp.Kd,
			TimeConstant: cp.TimeConstant,
			ControlGain:  cp.ControlGain,
			Saturation:   cp.Saturation,
			Setpoint:     cp.Setpoint,
			Index:        cp.Index,
			Precision:    cp.Precision,
		}
	}
	return meta
}

// Save writes metadata.json and states.csv under a fresh run directory and
// returns the run id.
func (s *Store) Save(cfg *config.Config, result *dynamo.Result) (string, error) {
	meta := newMetadata(cfg, result)
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, "states.csv"), result); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeStates(path string, result *dynamo.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := WriteCSV(w, result.Times, result.States, result.Controls); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes a time, x0..xn, u0..um table. Missing control rows are
// written as zeros.
func WriteCSV[S ~[]float64, C ~[]float64](w *csv.Writer, times []float64, states []S, controls []C) error {
	if len(states) == 0 {
		return nil
	}

	header := []string{"time"}
	for i := range states[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	numControls := 0
	if len(controls) > 0 {
		numControls = len(controls[0])
	}
	for i := 0; i < numControls; i++ {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range states {
		row := make([]string, 0, len(header))
		t := 0.0
		if i < len(times) {
			t = times[i]
		}
		row = append(row, formatFloat(t))
		for _, val := range states[i] {
			row = append(row, formatFloat(val))
		}
		for j := 0; j < numControls; j++ {
			val := 0.0
			if i < len(controls) && j < len(controls[i]) {
				val = controls[i][j]
			}
			row = append(row, formatFloat(val))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// table is the parsed states.csv of one run.
type table struct {
	times    []float64
	states   [][]float64
	controls [][]float64
}

func (s *Store) readTable(runID string) (*table, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tb := &table{}
	if len(records) < 2 {
		return tb, nil
	}

	header := records[0]
	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}

		var x, u []float64
		for j := 1; j < len(record) && j < len(header); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				val = 0
			}
			if strings.HasPrefix(header[j], "u") {
				u = append(u, val)
			} else {
				x = append(x, val)
			}
		}
		tb.times = append(tb.times, t)
		tb.states = append(tb.states, x)
		tb.controls = append(tb.controls, u)
	}
	return tb, nil
}

func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	tb, err := s.readTable(runID)
	if err != nil {
		return nil, nil, err
	}
	return tb.states, tb.times, nil
}

func (s *Store) LoadControls(runID string) ([][]float64, error) {
	tb, err := s.readTable(runID)
	if err != nil {
		return nil, err
	}
	return tb.controls, nil
}
