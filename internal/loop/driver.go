package loop

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/pidlab/internal/pid"
	"go.uber.org/zap"
)

type Sensor interface {
	Read(ctx context.Context) (float64, error)
}

type Actuator interface {
	Apply(ctx context.Context, u float64) error
}

// Snapshot is a value copy of one loop iteration.
type Snapshot struct {
	Seq          uint64
	Elapsed      time.Duration
	SamplingTime float64
	Setpoint     float64
	Measured     float64
	Error        float64
	Control      float64
	Saturated    bool
	State        pid.State[float64]
}

type Options struct {
	Period   time.Duration
	Setpoint float64
	// Snapshots receives every iteration; sends never block the loop.
	Snapshots chan<- Snapshot
	Logger    *zap.Logger
	// Clock defaults to time.Now. Readings must carry a monotonic component.
	Clock func() time.Time
}

type Driver struct {
	sensor   Sensor
	actuator Actuator
	period   time.Duration
	out      chan<- Snapshot
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	ctrl     *pid.Controller[float64]
	setpoint float64
	last     Snapshot
	seq      uint64
	started  time.Time

	running atomic.Bool
	skipped atomic.Uint64
	dropped atomic.Uint64
}

func New(cfg pid.Config[float64], sensor Sensor, actuator Actuator, opts Options) (*Driver, error) {
	if sensor == nil || actuator == nil {
		return nil, ErrNilIO
	}
	if opts.Period <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, opts.Period)
	}
	ctrl, err := pid.New(cfg)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		sensor:   sensor,
		actuator: actuator,
		period:   opts.Period,
		out:      opts.Snapshots,
		log:      opts.Logger,
		now:      opts.Clock,
		ctrl:     ctrl,
		setpoint: opts.Setpoint,
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.last.Setpoint = opts.Setpoint
	return d, nil
}

// Run ticks every Period until ctx is done and returns ctx.Err(). Samples with
// a degenerate sampling time, failed reads and failed writes are logged and
// skipped; the loop keeps going.
func (d *Driver) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer d.running.Store(false)

	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	start := d.now()
	d.mu.Lock()
	d.started = start
	d.mu.Unlock()
	prev := start

	d.log.Info("control loop started", zap.Duration("period", d.period))
	for {
		select {
		case <-ctx.Done():
			d.log.Info("control loop stopped",
				zap.Uint64("skipped", d.skipped.Load()),
				zap.Uint64("dropped", d.dropped.Load()),
			)
			return ctx.Err()
		case <-ticker.C:
		}

		now := d.now()
		dt := now.Sub(prev).Seconds()
		snap, err := d.step(ctx, dt, now.Sub(start))
		if err != nil {
			d.log.Warn("sample failed", zap.Float64("dt", dt), zap.Error(err))
			// The controller did not run, so the next sample spans this
			// interval too.
			if snap.Seq == 0 {
				continue
			}
		}
		prev = now
	}
}

// Step runs a single iteration with an explicit sampling time. It is meant for
// callers that schedule the loop themselves. Step and Run exclude each other,
// so the sensor and actuator are never called concurrently.
func (d *Driver) Step(ctx context.Context, samplingTime float64) (Snapshot, error) {
	if !d.running.CompareAndSwap(false, true) {
		return Snapshot{}, ErrAlreadyRunning
	}
	defer d.running.Store(false)

	d.mu.Lock()
	if d.started.IsZero() {
		d.started = d.now()
	}
	elapsed := d.now().Sub(d.started)
	d.mu.Unlock()
	return d.step(ctx, samplingTime, elapsed)
}

func (d *Driver) step(ctx context.Context, dt float64, elapsed time.Duration) (Snapshot, error) {
	measured, err := d.sensor.Read(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read: %w", err)
	}

	d.mu.Lock()
	cfg := d.ctrl.Config()
	if err := pid.ValidateSampling(dt, cfg.TimeConstant); err != nil {
		d.mu.Unlock()
		d.skipped.Add(1)
		return Snapshot{}, err
	}

	e := d.setpoint - measured
	u := d.ctrl.Step(e, dt)
	d.seq++
	snap := Snapshot{
		Seq:          d.seq,
		Elapsed:      elapsed,
		SamplingTime: dt,
		Setpoint:     d.setpoint,
		Measured:     measured,
		Error:        e,
		Control:      u,
		Saturated:    math.Abs(u) >= cfg.Saturation,
		State:        d.ctrl.State(),
	}
	d.last = snap
	d.mu.Unlock()

	d.publish(snap)

	if err := d.actuator.Apply(ctx, u); err != nil {
		return snap, fmt.Errorf("apply: %w", err)
	}
	return snap, nil
}

func (d *Driver) publish(s Snapshot) {
	if d.out == nil {
		return
	}
	select {
	case d.out <- s:
	default:
		d.dropped.Add(1)
	}
}

// Snapshot returns the latest iteration.
func (d *Driver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *Driver) Setpoint() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setpoint
}

func (d *Driver) SetSetpoint(v float64) {
	d.mu.Lock()
	d.setpoint = v
	d.mu.Unlock()
	d.log.Debug("setpoint changed", zap.Float64("setpoint", v))
}

func (d *Driver) Config() pid.Config[float64] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctrl.Config()
}

// SetConfig replaces the gains between two iterations; the controller state
// is kept.
func (d *Driver) SetConfig(cfg pid.Config[float64]) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctrl.SetConfig(cfg)
}

// Reset zeroes the controller state.
func (d *Driver) Reset() {
	d.mu.Lock()
	d.ctrl.Reset()
	d.last.State = d.ctrl.State()
	d.mu.Unlock()
	d.log.Debug("controller reset")
}

// Skipped counts samples rejected for their sampling time.
func (d *Driver) Skipped() uint64 { return d.skipped.Load() }

// Dropped counts snapshots the subscriber was not ready for.
func (d *Driver) Dropped() uint64 { return d.dropped.Load() }
