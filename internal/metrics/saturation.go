package metrics

import (
	"math"

	"github.com/san-kum/pidlab/internal/dynamo"
)

// Saturation is the fraction of samples whose first control channel sat on
// the actuator bound.
type Saturation struct {
	name      string
	bound     float64
	tolerance float64
	clipped   int
	samples   int
}

func NewSaturation(bound float64) *Saturation {
	return &Saturation{
		name:      "saturation",
		bound:     bound,
		tolerance: 1e-9 * math.Max(1, bound),
	}
}

func (s *Saturation) Name() string { return s.name }

func (s *Saturation) Observe(x dynamo.State, u dynamo.Control, t float64) {
	s.samples++
	if len(u) > 0 && math.Abs(u[0]) >= s.bound-s.tolerance {
		s.clipped++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.clipped) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.clipped = 0
	s.samples = 0
}
