package metrics

import (
	"math"

	"github.com/san-kum/pidlab/internal/dynamo"
	"gonum.org/v1/gonum/stat"
)

type trackingKind int

const (
	iae trackingKind = iota
	ise
	errStdDev
)

// Tracking scores how well one state component follows a setpoint.
type Tracking struct {
	name     string
	kind     trackingKind
	setpoint float64
	index    int

	sum    float64
	prevT  float64
	first  bool
	errors []float64
}

func newTracking(name string, kind trackingKind, setpoint float64, index int) *Tracking {
	return &Tracking{name: name, kind: kind, setpoint: setpoint, index: index, first: true}
}

// NewIAE integrates |setpoint - x[index]| over time.
func NewIAE(setpoint float64, index int) *Tracking {
	return newTracking("iae", iae, setpoint, index)
}

// NewISE integrates the squared tracking error over time.
func NewISE(setpoint float64, index int) *Tracking {
	return newTracking("ise", ise, setpoint, index)
}

// NewErrorStdDev is the sample standard deviation of the tracking error.
func NewErrorStdDev(setpoint float64, index int) *Tracking {
	return newTracking("error_stddev", errStdDev, setpoint, index)
}

func (m *Tracking) Name() string { return m.name }

func (m *Tracking) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if m.index >= len(x) {
		return
	}
	e := m.setpoint - x[m.index]

	switch m.kind {
	case errStdDev:
		m.errors = append(m.errors, e)
	default:
		if !m.first {
			dt := t - m.prevT
			if m.kind == iae {
				m.sum += math.Abs(e) * dt
			} else {
				m.sum += e * e * dt
			}
		}
	}
	m.first = false
	m.prevT = t
}

func (m *Tracking) Value() float64 {
	if m.kind == errStdDev {
		if len(m.errors) < 2 {
			return 0
		}
		return stat.StdDev(m.errors, nil)
	}
	return m.sum
}

func (m *Tracking) Reset() {
	m.sum = 0
	m.prevT = 0
	m.first = true
	m.errors = m.errors[:0]
}
