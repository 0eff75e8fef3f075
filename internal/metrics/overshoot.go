package metrics

import (
	"math"

	"github.com/san-kum/pidlab/internal/dynamo"
)

// Overshoot is the largest excursion past the setpoint, as a fraction of the
// distance from the initial value to the setpoint.
type Overshoot struct {
	name     string
	setpoint float64
	index    int

	start   float64
	peak    float64
	samples int
}

func NewOvershoot(setpoint float64, index int) *Overshoot {
	return &Overshoot{name: "overshoot", setpoint: setpoint, index: index}
}

func (o *Overshoot) Name() string { return o.name }

func (o *Overshoot) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if o.index >= len(x) {
		return
	}
	v := x[o.index]
	if o.samples == 0 {
		o.start = v
	}
	o.samples++

	// measure past the setpoint in the direction of travel
	past := v - o.setpoint
	if o.setpoint < o.start {
		past = -past
	}
	o.peak = math.Max(o.peak, past)
}

func (o *Overshoot) Value() float64 {
	step := math.Abs(o.setpoint - o.start)
	if o.samples == 0 || step == 0 {
		return 0
	}
	return o.peak / step
}

func (o *Overshoot) Reset() {
	o.start = 0
	o.peak = 0
	o.samples = 0
}
