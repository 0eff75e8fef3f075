package loop_test

import (
	"context"
	"sync"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type stubSensor struct {
	mu    sync.Mutex
	value float64
	err   error
}

func (s *stubSensor) Read(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.err
}

type recordingActuator struct {
	mu      sync.Mutex
	applied []float64
	err     error
}

func (a *recordingActuator) Apply(ctx context.Context, u float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.applied = append(a.applied, u)
	return nil
}

func (a *recordingActuator) Applied() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]float64(nil), a.applied...)
}

// gatedSensor blocks every Read until release is closed.
type gatedSensor struct {
	entered chan struct{}
	release chan struct{}
}

func newGatedSensor() *gatedSensor {
	return &gatedSensor{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (s *gatedSensor) Read(ctx context.Context) (float64, error) {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
	return 1, nil
}
