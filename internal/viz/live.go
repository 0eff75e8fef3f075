package viz

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pidlab/internal/loop"
)

const (
	defaultWidth    = 80
	graphHeight     = 10
	historyCapacity = 600
)

// SnapshotMsg carries one loop iteration into the model.
type SnapshotMsg loop.Snapshot

type streamClosedMsg struct{}

type Model struct {
	driver  *loop.Driver
	snaps   <-chan loop.Snapshot
	onReset func()

	title   string
	spStep  float64
	width   int
	last    loop.Snapshot
	closed  bool
	samples int

	measured []float64
	setpoint []float64
	control  []float64
	errs     []float64
}

// NewModel watches d through snaps, which must be the channel passed to the
// driver as Options.Snapshots. spStep is the setpoint increment for +/-.
func NewModel(d *loop.Driver, snaps <-chan loop.Snapshot, title string, spStep float64) Model {
	return Model{
		driver:   d,
		snaps:    snaps,
		title:    title,
		spStep:   spStep,
		width:    defaultWidth,
		measured: make([]float64, 0, historyCapacity),
		setpoint: make([]float64, 0, historyCapacity),
		control:  make([]float64, 0, historyCapacity),
		errs:     make([]float64, 0, historyCapacity),
	}
}

// WithReset registers a hook run on "r" after the controller is reset.
func (m Model) WithReset(fn func()) Model {
	m.onReset = fn
	return m
}

func waitForSnapshot(snaps <-chan loop.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-snaps
		if !ok {
			return streamClosedMsg{}
		}
		return SnapshotMsg(s)
	}
}

func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.snaps)
}

func push(buf []float64, v float64) []float64 {
	if len(buf) == historyCapacity {
		copy(buf, buf[1:])
		buf = buf[:len(buf)-1]
	}
	return append(buf, v)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.driver.Reset()
			if m.onReset != nil {
				m.onReset()
			}
		case "+", "=":
			m.driver.SetSetpoint(m.driver.Setpoint() + m.spStep)
		case "-", "_":
			m.driver.SetSetpoint(m.driver.Setpoint() - m.spStep)
		}
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 40)
	case SnapshotMsg:
		s := loop.Snapshot(msg)
		m.last = s
		m.samples++
		m.measured = push(m.measured, s.Measured)
		m.setpoint = push(m.setpoint, s.Setpoint)
		m.control = push(m.control, s.Control)
		m.errs = push(m.errs, s.Error)
		return m, waitForSnapshot(m.snaps)
	case streamClosedMsg:
		m.closed = true
	}
	return m, nil
}

func (m Model) graphWidth() int {
	return max(m.width-50, 20)
}

func (m Model) plots() string {
	if len(m.measured) < 2 {
		return Subtle.Render("waiting for samples...")
	}
	w := m.graphWidth()
	value := asciigraph.PlotMany([][]float64{m.measured, m.setpoint},
		asciigraph.Height(graphHeight),
		asciigraph.Width(w),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
		asciigraph.Caption("measured (green) vs setpoint (red)"),
	)
	control := asciigraph.Plot(m.control,
		asciigraph.Height(graphHeight/2),
		asciigraph.Width(w),
		asciigraph.SeriesColors(asciigraph.Yellow),
		asciigraph.Caption("control"),
	)
	return value + "\n\n" + control
}

func row(label, value string) string {
	return MetricLabel.Render(label) + MetricValue.Render(value) + "\n"
}

func (m Model) panel() string {
	s := m.last
	var b strings.Builder

	status := StatusRunning.Render("RUNNING")
	switch {
	case m.closed:
		status = Subtle.Render("STOPPED")
	case s.Saturated:
		status = StatusSaturated.Render("SATURATED")
	}
	b.WriteString(status + "\n\n")

	b.WriteString(row("time", fmt.Sprintf("%.2fs", s.Elapsed.Seconds())))
	b.WriteString(row("dt", fmt.Sprintf("%.4fs", s.SamplingTime)))
	b.WriteString(row("setpoint", fmt.Sprintf("%.3f", m.driver.Setpoint())))
	b.WriteString(row("measured", fmt.Sprintf("%.3f", s.Measured)))
	b.WriteString(row("error", fmt.Sprintf("%+.3f", s.Error)))
	b.WriteString(row("control", fmt.Sprintf("%+.3f", s.Control)))

	cfg := m.driver.Config()
	load := 0.0
	if cfg.Saturation > 0 {
		load = math.Abs(s.Control) / cfg.Saturation
	}
	b.WriteString(MetricLabel.Render("output") + ProgressBar(load, 16) + "\n\n")

	b.WriteString(Subtle.Render("INTERNALS") + "\n")
	b.WriteString(row("∫e", fmt.Sprintf("%.3f", s.State.ErrorIntegral)))
	b.WriteString(row("de/dt", fmt.Sprintf("%.3f", s.State.ErrorDerivative)))
	b.WriteString(row("sat err", fmt.Sprintf("%.3f", s.State.SatError)))
	b.WriteString(row("∫sat err", fmt.Sprintf("%.3f", s.State.SatErrorIntegral)))
	b.WriteString(MetricLabel.Render("error trend") + SparklineChart(m.errs, 16) + "\n\n")

	b.WriteString(Subtle.Render("GAINS") + "\n")
	b.WriteString(row("kp ki kd", fmt.Sprintf("%g %g %g", cfg.ProportionGain, cfg.IntegralGain, cfg.DerivativeGain)))
	b.WriteString(row("tc kc sat", fmt.Sprintf("%g %g %g", cfg.TimeConstant, cfg.ControlGain, cfg.Saturation)))

	b.WriteString(KeyHint.Render(fmt.Sprintf("\nq:quit  r:reset  +/-:setpoint ±%g", m.spStep)))
	return GlassPanel.Render(b.String())
}

func (m Model) View() string {
	header := HeaderStyle.Render(GradientTitle.Render(strings.ToUpper(m.title)))
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.plots(), "  ", m.panel())
	return header + "\n\n" + body + "\n"
}
