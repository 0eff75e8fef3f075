package viz

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/pidlab/internal/loop"
	"github.com/san-kum/pidlab/internal/pid"
)

type constSensor float64

func (c constSensor) Read(ctx context.Context) (float64, error) { return float64(c), nil }

type discard struct{}

func (discard) Apply(ctx context.Context, u float64) error { return nil }

func newTestModel(t *testing.T) (Model, *loop.Driver, chan loop.Snapshot) {
	t.Helper()
	snaps := make(chan loop.Snapshot, 8)
	cfg := pid.Config[float64]{ProportionGain: 1, IntegralGain: 0.5, ControlGain: 0.2, Saturation: 2}
	d, err := loop.New(cfg, constSensor(1), discard{}, loop.Options{
		Period:    time.Second,
		Setpoint:  3,
		Snapshots: snaps,
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewModel(d, snaps, "heater", 0.5), d, snaps
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelConsumesSnapshots(t *testing.T) {
	m, d, snaps := newTestModel(t)

	for i := 0; i < 3; i++ {
		if _, err := d.Step(context.Background(), 0.1); err != nil {
			t.Fatal(err)
		}
	}

	cmd := m.Init()
	for i := 0; i < 3; i++ {
		msg := cmd()
		next, c := m.Update(msg)
		m = next.(Model)
		cmd = c
		if cmd == nil {
			t.Fatal("expected the model to keep listening")
		}
	}

	if m.samples != 3 || len(m.measured) != 3 {
		t.Fatalf("expected 3 samples, got %d", m.samples)
	}
	if m.last.Seq != 3 {
		t.Errorf("expected last seq 3, got %d", m.last.Seq)
	}
	if len(snaps) != 0 {
		t.Errorf("expected the channel drained, %d left", len(snaps))
	}

	view := m.View()
	for _, want := range []string{"HEATER", "setpoint", "control", "SATURATED"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelKeys(t *testing.T) {
	m, d, _ := newTestModel(t)

	next, _ := m.Update(key("+"))
	m = next.(Model)
	if d.Setpoint() != 3.5 {
		t.Errorf("expected setpoint 3.5, got %f", d.Setpoint())
	}
	next, _ = m.Update(key("-"))
	m = next.(Model)
	m.Update(key("-"))
	if d.Setpoint() != 2.5 {
		t.Errorf("expected setpoint 2.5, got %f", d.Setpoint())
	}

	if _, err := d.Step(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	resets := 0
	m = m.WithReset(func() { resets++ })
	m.Update(key("r"))
	if resets != 1 {
		t.Errorf("expected reset hook to run once, got %d", resets)
	}
	if d.Snapshot().State != (pid.State[float64]{}) {
		t.Error("expected controller state cleared")
	}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModelStreamClosed(t *testing.T) {
	m, _, snaps := newTestModel(t)
	close(snaps)

	next, cmd := m.Update(m.Init()())
	m = next.(Model)
	if cmd != nil {
		t.Error("expected no further commands after the stream closed")
	}
	if !strings.Contains(m.View(), "STOPPED") {
		t.Error("expected stopped status")
	}
}

func TestSparklineChart(t *testing.T) {
	if got := SparklineChart(nil, 4); got != "────" {
		t.Errorf("unexpected empty sparkline %q", got)
	}
	if got := SparklineChart([]float64{0, 1, 2, 3, 4, 5}, 3); !strings.Contains(got, "▁▄█") {
		t.Errorf("unexpected sparkline %q", got)
	}
}
