package loop

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/san-kum/pidlab/internal/dynamo"
)

// DefaultMaxStep bounds a single integrator step inside PlantSim.
const DefaultMaxStep = 0.01

// MaxAdvanceSteps caps the integrator steps of one catch-up. Longer gaps are
// rejected with ErrElapsed and the plant keeps its state.
const MaxAdvanceSteps = 1_000_000

// PlantSim is a simulated plant that is both Sensor and Actuator. Between
// calls the system is integrated over the wall-clock time that has passed,
// holding the last applied control.
type PlantSim struct {
	mu      sync.Mutex
	sys     dynamo.System
	integ   dynamo.Integrator
	x       dynamo.State
	x0      dynamo.State
	u       dynamo.Control
	index   int
	t       float64
	last    time.Time
	now     func() time.Time
	maxStep float64
}

func NewPlantSim(sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, index int) (*PlantSim, error) {
	if len(x0) != sys.StateDim() {
		return nil, fmt.Errorf("%w: initial state has %d components, system expects %d",
			dynamo.ErrDimensionMismatch, len(x0), sys.StateDim())
	}
	if index < 0 || index >= sys.StateDim() {
		return nil, fmt.Errorf("%w: index %d", dynamo.ErrDimensionMismatch, index)
	}
	p := &PlantSim{
		sys:     sys,
		integ:   integ,
		x:       x0.Clone(),
		x0:      x0.Clone(),
		u:       make(dynamo.Control, sys.ControlDim()),
		index:   index,
		now:     time.Now,
		maxStep: DefaultMaxStep,
	}
	p.last = p.now()
	return p, nil
}

// WithClock swaps the time source and restarts the wall-clock reference.
func (p *PlantSim) WithClock(now func() time.Time) *PlantSim {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
	p.last = now()
	return p
}

func (p *PlantSim) Read(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.catchUp(); err != nil {
		return 0, err
	}
	return p.x[p.index], nil
}

func (p *PlantSim) Apply(ctx context.Context, u float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.catchUp(); err != nil {
		return err
	}
	if len(p.u) > 0 {
		p.u[0] = u
	}
	return nil
}

func (p *PlantSim) catchUp() error {
	now := p.now()
	elapsed := now.Sub(p.last).Seconds()
	p.last = now
	return p.advance(elapsed)
}

// Advance integrates the plant over dt seconds of simulated time regardless of
// the clock.
func (p *PlantSim) Advance(dt float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.advance(dt)
}

func (p *PlantSim) advance(dt float64) error {
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %g s", ErrElapsed, dt)
	}
	if dt <= 0 {
		return nil
	}
	n := math.Ceil(dt / p.maxStep)
	if n > MaxAdvanceSteps {
		return fmt.Errorf("%w: %g s needs %.0f steps", ErrElapsed, dt, n)
	}

	h := dt / n
	for i := 0; i < int(n); i++ {
		next := p.integ.Step(p.sys, p.x, p.u, p.t, h)
		if !next.IsValid() {
			return &dynamo.SimulationError{Time: p.t, State: p.x.Clone(), Wrapped: dynamo.ErrInvalidState}
		}
		p.x = next
		p.t += h
	}
	return nil
}

// State returns a copy of the plant state and its simulated time.
func (p *PlantSim) State() (dynamo.State, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.x.Clone(), p.t
}

// Reset restores the initial state and zeroes the held control.
func (p *PlantSim) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.x = p.x0.Clone()
	for i := range p.u {
		p.u[i] = 0
	}
	p.t = 0
	p.last = p.now()
}
