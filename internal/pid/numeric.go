package pid

import (
	"fmt"
	"math"
)

// Float is the set of types a Controller can be instantiated with.
type Float interface {
	~float32 | ~float64
}

// Trapezoid returns the area under the segment between two consecutive samples.
func Trapezoid[T Float](value, prevValue, samplingTime T) T {
	return (value + prevValue) * 0.5 * samplingTime
}

// FilteredDerivative advances a one-pole low-pass filter on the derivative of
// value. With timeConstant == 0 it reduces to Derivative.
// timeConstant+samplingTime must be non-zero.
func FilteredDerivative[T Float](value, prevValue, samplingTime, prevDerivative, timeConstant T) T {
	return (value - prevValue + prevDerivative*timeConstant) / (timeConstant + samplingTime)
}

// Derivative is the unfiltered backward difference. samplingTime must be non-zero.
func Derivative[T Float](value, prevValue, samplingTime T) T {
	return (value - prevValue) / samplingTime
}

func Clamp[T Float](value, lo, hi T) T {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// ValidateSampling reports whether samplingTime can be passed to Step for a
// controller whose derivative filter uses timeConstant.
func ValidateSampling[T Float](samplingTime, timeConstant T) error {
	switch {
	case !isFinite(samplingTime):
		return fmt.Errorf("%w: %g is not finite", ErrInvalidSampling, float64(samplingTime))
	case samplingTime <= 0:
		return fmt.Errorf("%w: %g must be positive", ErrInvalidSampling, float64(samplingTime))
	case samplingTime+timeConstant == 0:
		return fmt.Errorf("%w: filter denominator is zero", ErrInvalidSampling)
	}
	return nil
}

func isFinite[T Float](v T) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
