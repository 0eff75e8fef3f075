package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoData = errors.New("analysis: not enough samples")
	ErrNoStep = errors.New("analysis: response starts at the setpoint")
)

const (
	riseLow      = 0.1
	riseHigh     = 0.9
	settlingBand = 0.02
	tailFraction = 0.05
)

type StepInfo struct {
	RiseTime     float64 `json:"rise_time"`
	Peak         float64 `json:"peak"`
	PeakTime     float64 `json:"peak_time"`
	Overshoot    float64 `json:"overshoot"`
	SettlingTime float64 `json:"settling_time"`
	Settled      bool    `json:"settled"`
	SteadyError  float64 `json:"steady_state_error"`
}

// StepResponse measures a response that starts at values[0] and is driven
// towards setpoint.
func StepResponse(times, values []float64, setpoint float64) (StepInfo, error) {
	var info StepInfo
	if len(times) < 2 || len(times) != len(values) {
		return info, fmt.Errorf("%w: %d times, %d values", ErrNoData, len(times), len(values))
	}

	start := values[0]
	step := setpoint - start
	if step == 0 {
		return info, ErrNoStep
	}
	dir := math.Copysign(1, step)

	// progress is the fraction of the step covered, 1 at the setpoint
	progress := func(v float64) float64 { return (v - start) / step }

	tLow, tHigh := math.NaN(), math.NaN()
	info.Peak = start
	for i, v := range values {
		p := progress(v)
		if math.IsNaN(tLow) && p >= riseLow {
			tLow = times[i]
		}
		if math.IsNaN(tHigh) && p >= riseHigh {
			tHigh = times[i]
		}
		if (v-info.Peak)*dir > 0 {
			info.Peak = v
			info.PeakTime = times[i]
		}
	}
	if !math.IsNaN(tHigh) {
		info.RiseTime = tHigh - tLow
	}
	info.Overshoot = math.Max(0, (info.Peak-setpoint)*dir/math.Abs(step))

	band := settlingBand * math.Abs(step)
	last := -1
	for i, v := range values {
		if math.Abs(v-setpoint) > band {
			last = i
		}
	}
	switch {
	case last == len(values)-1:
		info.Settled = false
	case last < 0:
		info.Settled = true
	default:
		info.Settled = true
		info.SettlingTime = times[last+1] - times[0]
	}

	n := int(math.Ceil(tailFraction * float64(len(values))))
	info.SteadyError = setpoint - stat.Mean(values[len(values)-n:], nil)

	return info, nil
}
