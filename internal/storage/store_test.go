package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/pidlab/internal/config"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *dynamo.Result {
	return &dynamo.Result{
		States: []dynamo.State{
			{1.0, 0.0},
			{0.9, -0.1},
			{0.75, -0.2},
		},
		Controls: []dynamo.Control{
			{0.5},
			{-1.0},
		},
		Times: []float64{0.0, 0.01, 0.02},
		Metrics: map[string]float64{
			"iae": 1.5,
		},
	}
}

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	st := New(dir)
	require.NoError(t, st.Init())
	return st, dir
}

func TestStoreSaveLoad(t *testing.T) {
	st, _ := newStore(t)

	cfg := config.GetPreset("spring_mass", "position")
	cfg.Seed = 42
	runID, err := st.Save(cfg, sampleResult())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(runID, "spring_mass_"))

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "spring_mass", meta.Plant)
	assert.Equal(t, int64(42), meta.Seed)
	assert.Equal(t, 3, meta.Steps)
	assert.Equal(t, 1.5, meta.Metrics["iae"])
	require.NotNil(t, meta.Gains)
	assert.Equal(t, 40.0, meta.Gains.Kp)
	assert.Equal(t, 2.0, meta.Gains.ControlGain)
	assert.Equal(t, 20.0, meta.Gains.Saturation)

	states, times, err := st.LoadStates(runID)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.01, 0.02}, times)
	assert.Equal(t, [][]float64{{1, 0}, {0.9, -0.1}, {0.75, -0.2}}, states)

	controls, err := st.LoadControls(runID)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5}, {-1}, {0}}, controls)
}

func TestStoreOmitsGainsForOpenLoop(t *testing.T) {
	st, _ := newStore(t)

	runID, err := st.Save(config.GetPreset("thermal", "open_loop"), sampleResult())
	require.NoError(t, err)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Nil(t, meta.Gains)
	assert.Equal(t, "constant", meta.Controller)
}

func TestStoreList(t *testing.T) {
	st, _ := newStore(t)

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = st.Save(config.DefaultConfig(), sampleResult())
	require.NoError(t, err)
	_, err = st.Save(config.DefaultConfig(), sampleResult())
	require.NoError(t, err)

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.False(t, runs[1].Timestamp.Before(runs[0].Timestamp))
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"))
	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreFileStructure(t *testing.T) {
	st, dir := newStore(t)

	runID, err := st.Save(config.DefaultConfig(), sampleResult())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, runID, "metadata.json"))
	assert.FileExists(t, filepath.Join(dir, runID, "states.csv"))

	data, err := os.ReadFile(filepath.Join(dir, runID, "states.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "time,x0,x1,u0\n"))
}

func TestExportJSON(t *testing.T) {
	st, _ := newStore(t)

	runID, err := st.Save(config.DefaultConfig(), sampleResult())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.ExportJSON(runID, &buf))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, runID, data.ID)
	assert.Equal(t, "thermal", data.Plant)
	assert.Len(t, data.Times, 3)
	assert.Len(t, data.States, 3)
	assert.Equal(t, []float64{-1}, data.Controls[1])
}

func TestExportCSV(t *testing.T) {
	st, _ := newStore(t)

	runID, err := st.Save(config.DefaultConfig(), sampleResult())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.ExportCSV(runID, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "time,x0,x1,u0", lines[0])
	assert.Equal(t, "0.01,0.9,-0.1,-1", lines[2])
}

func TestExportCSVEmptyRun(t *testing.T) {
	st, _ := newStore(t)

	runID, err := st.Save(config.DefaultConfig(), &dynamo.Result{Metrics: map[string]float64{}})
	require.NoError(t, err)

	err = st.ExportCSV(runID, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestLoadUnknownRun(t *testing.T) {
	st, _ := newStore(t)

	_, err := st.Load("nope")
	assert.Error(t, err)
	_, _, err = st.LoadStates("nope")
	assert.Error(t, err)
}
