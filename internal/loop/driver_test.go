package loop_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pidlab/internal/loop"
	"github.com/san-kum/pidlab/internal/pid"
)

var _ = Describe("Driver", func() {
	var (
		sensor   *stubSensor
		actuator *recordingActuator
		cfg      pid.Config[float64]
	)

	BeforeEach(func() {
		sensor = &stubSensor{value: 1}
		actuator = &recordingActuator{}
		cfg = pid.Config[float64]{ProportionGain: 2, Saturation: 10}
	})

	Describe("construction", func() {
		It("requires a sensor and an actuator", func() {
			_, err := loop.New(cfg, nil, actuator, loop.Options{Period: time.Millisecond})
			Expect(err).To(MatchError(loop.ErrNilIO))
		})

		It("requires a positive period", func() {
			_, err := loop.New(cfg, sensor, actuator, loop.Options{})
			Expect(err).To(MatchError(loop.ErrInvalidPeriod))
		})

		It("rejects an invalid controller config", func() {
			cfg.Saturation = 0
			_, err := loop.New(cfg, sensor, actuator, loop.Options{Period: time.Millisecond})
			Expect(err).To(MatchError(pid.ErrInvalidConfig))
		})
	})

	Describe("Step", func() {
		var d *loop.Driver

		BeforeEach(func() {
			var err error
			d, err = loop.New(cfg, sensor, actuator, loop.Options{Period: time.Millisecond, Setpoint: 3})
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps Run out while a manual step is in flight", func() {
			gated := newGatedSensor()
			gd, err := loop.New(cfg, gated, actuator, loop.Options{Period: time.Millisecond, Setpoint: 3})
			Expect(err).NotTo(HaveOccurred())

			stepped := make(chan error, 1)
			go func() {
				_, err := gd.Step(context.Background(), 0.1)
				stepped <- err
			}()
			Eventually(gated.entered).Should(Receive())

			Expect(gd.Run(context.Background())).To(MatchError(loop.ErrAlreadyRunning))
			_, err = gd.Step(context.Background(), 0.1)
			Expect(err).To(MatchError(loop.ErrAlreadyRunning))

			close(gated.release)
			Eventually(stepped).Should(Receive(BeNil()))
			Expect(actuator.Applied()).To(Equal([]float64{4}))
		})

		It("drives the actuator with the controller output", func() {
			snap, err := d.Step(context.Background(), 0.1)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Seq).To(Equal(uint64(1)))
			Expect(snap.Measured).To(Equal(1.0))
			Expect(snap.Error).To(Equal(2.0))
			Expect(snap.Control).To(Equal(4.0))
			Expect(snap.Saturated).To(BeFalse())
			Expect(actuator.Applied()).To(Equal([]float64{4}))
			Expect(d.Snapshot()).To(Equal(snap))
		})

		It("reports saturation", func() {
			sensor.value = -100
			snap, err := d.Step(context.Background(), 0.1)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Control).To(Equal(10.0))
			Expect(snap.Saturated).To(BeTrue())
			Expect(snap.State.SatError).To(Equal(196.0))
		})

		It("skips a degenerate sampling time without touching the controller", func() {
			_, err := d.Step(context.Background(), 0)
			Expect(err).To(MatchError(pid.ErrInvalidSampling))
			Expect(d.Skipped()).To(Equal(uint64(1)))
			Expect(actuator.Applied()).To(BeEmpty())
			Expect(d.Snapshot().Seq).To(BeZero())
		})

		It("does not step when the sensor fails", func() {
			sensor.err = errors.New("disconnected")
			_, err := d.Step(context.Background(), 0.1)
			Expect(err).To(MatchError(ContainSubstring("disconnected")))
			Expect(actuator.Applied()).To(BeEmpty())
			Expect(d.Snapshot().Seq).To(BeZero())
		})

		It("returns the snapshot when the actuator fails", func() {
			actuator.err = errors.New("stalled")
			snap, err := d.Step(context.Background(), 0.1)
			Expect(err).To(MatchError(ContainSubstring("stalled")))
			Expect(snap.Seq).To(Equal(uint64(1)))
		})

		It("keeps state across SetConfig and clears it on Reset", func() {
			cfg.IntegralGain = 1
			Expect(d.SetConfig(cfg)).To(Succeed())
			for i := 0; i < 3; i++ {
				_, err := d.Step(context.Background(), 0.5)
				Expect(err).NotTo(HaveOccurred())
			}
			before := d.Snapshot().State
			Expect(before.ErrorIntegral).To(BeNumerically("~", 2.5, 1e-12))

			cfg.ProportionGain = 1
			Expect(d.SetConfig(cfg)).To(Succeed())
			Expect(d.Config().ProportionGain).To(Equal(1.0))
			Expect(d.Snapshot().State).To(Equal(before))

			bad := cfg
			bad.TimeConstant = -1
			Expect(d.SetConfig(bad)).To(MatchError(pid.ErrInvalidConfig))
			Expect(d.Config()).To(Equal(cfg))

			d.Reset()
			Expect(d.Snapshot().State).To(Equal(pid.State[float64]{}))
		})

		It("follows setpoint changes", func() {
			d.SetSetpoint(11)
			Expect(d.Setpoint()).To(Equal(11.0))
			snap, err := d.Step(context.Background(), 0.1)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Setpoint).To(Equal(11.0))
			Expect(snap.Control).To(Equal(10.0))
		})
	})

	Describe("Run", func() {
		var (
			d      *loop.Driver
			ctx    context.Context
			cancel context.CancelFunc
			done   chan error
			snaps  chan loop.Snapshot
		)

		start := func(opts loop.Options) {
			var err error
			d, err = loop.New(cfg, sensor, actuator, opts)
			Expect(err).NotTo(HaveOccurred())
			ctx, cancel = context.WithCancel(context.Background())
			done = make(chan error, 1)
			go func() { done <- d.Run(ctx) }()
		}

		AfterEach(func() {
			cancel()
			Eventually(done).Should(Receive(MatchError(context.Canceled)))
		})

		It("ticks until cancelled", func() {
			snaps = make(chan loop.Snapshot, 64)
			start(loop.Options{Period: time.Millisecond, Setpoint: 3, Snapshots: snaps})

			var snap loop.Snapshot
			Eventually(snaps).Should(Receive(&snap))
			Expect(snap.SamplingTime).To(BeNumerically(">", 0))
			Expect(snap.Control).To(Equal(4.0))
			Eventually(func() uint64 { return d.Snapshot().Seq }).Should(BeNumerically(">", 3))
		})

		It("refuses a second Run and manual steps while running", func() {
			start(loop.Options{Period: time.Millisecond})
			Eventually(func() uint64 { return d.Snapshot().Seq }).Should(BeNumerically(">", 0))

			Expect(d.Run(context.Background())).To(MatchError(loop.ErrAlreadyRunning))
			_, err := d.Step(context.Background(), 0.1)
			Expect(err).To(MatchError(loop.ErrAlreadyRunning))
		})

		It("never blocks on a slow subscriber", func() {
			snaps = make(chan loop.Snapshot)
			start(loop.Options{Period: time.Millisecond, Snapshots: snaps})

			Eventually(func() uint64 { return d.Snapshot().Seq }).Should(BeNumerically(">", 5))
			Expect(d.Dropped()).To(BeNumerically(">", 0))
		})

		It("applies setpoint changes from another goroutine", func() {
			start(loop.Options{Period: time.Millisecond, Setpoint: 3})
			go d.SetSetpoint(5)

			Eventually(func() float64 { return d.Snapshot().Setpoint }).Should(Equal(5.0))
			Eventually(func() float64 { return d.Snapshot().Control }).Should(Equal(8.0))
		})

		It("skips samples while the clock stands still", func() {
			frozen := newFakeClock()
			start(loop.Options{Period: time.Millisecond, Clock: frozen.Now})

			Eventually(d.Skipped).Should(BeNumerically(">", 3))
			Expect(d.Snapshot().Seq).To(BeZero())
			Expect(actuator.Applied()).To(BeEmpty())

			frozen.Add(5 * time.Millisecond)
			Eventually(func() uint64 { return d.Snapshot().Seq }).Should(Equal(uint64(1)))
			Expect(d.Snapshot().SamplingTime).To(BeNumerically("~", 0.005, 1e-12))
		})
	})
})
