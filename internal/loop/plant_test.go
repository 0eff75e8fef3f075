package loop_test

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/integrators"
	"github.com/san-kum/pidlab/internal/loop"
	"github.com/san-kum/pidlab/internal/physics"
	"github.com/san-kum/pidlab/internal/pid"
)

var _ = Describe("PlantSim", func() {
	var clock *fakeClock

	BeforeEach(func() {
		clock = newFakeClock()
	})

	newThermal := func() *loop.PlantSim {
		plant, err := loop.NewPlantSim(physics.NewThermal(), integrators.NewRK4(), dynamo.State{20}, 0)
		Expect(err).NotTo(HaveOccurred())
		return plant.WithClock(clock.Now)
	}

	It("validates the state dimension and index", func() {
		_, err := loop.NewPlantSim(physics.NewThermal(), integrators.NewRK4(), dynamo.State{20, 0}, 0)
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		_, err = loop.NewPlantSim(physics.NewDCMotor(), integrators.NewRK4(), dynamo.State{0, 0}, 2)
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
	})

	It("integrates over elapsed wall-clock time with the held control", func() {
		plant := newThermal()
		Expect(plant.Apply(context.Background(), 1)).To(Succeed())

		clock.Add(10 * time.Second)
		v, err := plant.Read(context.Background())
		Expect(err).NotTo(HaveOccurred())

		want := 20 + 80*(1-math.Exp(-0.1))
		Expect(v).To(BeNumerically("~", want, 1e-6))
		_, t := plant.State()
		Expect(t).To(BeNumerically("~", 10, 1e-9))
	})

	It("does not move while the clock stands still", func() {
		plant := newThermal()
		Expect(plant.Apply(context.Background(), 1)).To(Succeed())
		v, err := plant.Read(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(20.0))
	})

	It("resets to the initial state", func() {
		plant := newThermal()
		Expect(plant.Apply(context.Background(), 1)).To(Succeed())
		Expect(plant.Advance(5)).To(Succeed())
		plant.Reset()

		x, t := plant.State()
		Expect(x).To(Equal(dynamo.State{20}))
		Expect(t).To(BeZero())
		Expect(plant.Advance(5)).To(Succeed())
		x, _ = plant.State()
		Expect(x[0]).To(BeNumerically("~", 20, 1e-12))
	})

	It("rejects a gap too long to integrate and keeps its state", func() {
		plant := newThermal()
		Expect(plant.Apply(context.Background(), 1)).To(Succeed())

		Expect(plant.Advance(1e17)).To(MatchError(loop.ErrElapsed))
		Expect(plant.Advance(math.Inf(1))).To(MatchError(loop.ErrElapsed))
		Expect(plant.Advance(math.NaN())).To(MatchError(loop.ErrElapsed))

		x, t := plant.State()
		Expect(x).To(Equal(dynamo.State{20}))
		Expect(t).To(BeZero())
	})

	It("recovers after the clock jumps too far", func() {
		plant := newThermal()
		Expect(plant.Apply(context.Background(), 1)).To(Succeed())

		clock.Add(1000 * time.Hour)
		_, err := plant.Read(context.Background())
		Expect(err).To(MatchError(loop.ErrElapsed))

		clock.Add(time.Second)
		v, err := plant.Read(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeNumerically(">", 20))
		_, t := plant.State()
		Expect(t).To(BeNumerically("~", 1, 1e-9))
	})

	It("splits an advance into equal steps no longer than the default", func() {
		plant := newThermal()
		Expect(plant.Advance(0.025)).To(Succeed())
		_, t := plant.State()
		Expect(t).To(BeNumerically("~", 0.025, 1e-12))
	})
})

var _ = Describe("closed loop", func() {
	It("regulates a heater to its setpoint within the actuator limits", func() {
		clock := newFakeClock()
		plant, err := loop.NewPlantSim(physics.NewThermal(), integrators.NewRK4(), dynamo.State{20}, 0)
		Expect(err).NotTo(HaveOccurred())
		plant.WithClock(clock.Now)

		cfg := pid.Config[float64]{ProportionGain: 0.5, IntegralGain: 0.02, ControlGain: 0.5, Saturation: 1}
		d, err := loop.New(cfg, plant, plant, loop.Options{Period: 100 * time.Millisecond, Setpoint: 60, Clock: clock.Now})
		Expect(err).NotTo(HaveOccurred())

		ctx := context.Background()
		saturated := 0
		for i := 0; i < 6000; i++ {
			clock.Add(100 * time.Millisecond)
			snap, err := d.Step(ctx, 0.1)
			Expect(err).NotTo(HaveOccurred())
			Expect(math.Abs(snap.Control)).To(BeNumerically("<=", 1))
			if snap.Saturated {
				saturated++
			}
		}

		Expect(saturated).To(BeNumerically(">", 0))
		Expect(d.Snapshot().Measured).To(BeNumerically("~", 60, 0.5))
	})
})
