// Package pid provides a discrete PID regulator with output saturation and
// back-calculation anti-windup.
//
// The controller is generic over the floating point type it runs at:
//
//   - [Controller]: owns gains, anti-windup parameters and per-step history
//   - [Config]: gains, derivative filter time constant, anti-windup gain and
//     the symmetric output bound
//   - [Trapezoid], [FilteredDerivative], [Derivative], [Clamp]: the numeric
//     building blocks used by [Controller.Step]
//
// # Usage
//
//	c, err := pid.New(pid.Config[float32]{
//		ProportionGain: 2, IntegralGain: 0.5, DerivativeGain: 0.1,
//		TimeConstant: 0.02, ControlGain: 1, Saturation: 12,
//	})
//	...
//	u := c.Step(setpoint-measured, dt)
//
// # Thread Safety
//
// Controller instances are NOT thread-safe. Step is meant to be called from a
// single control loop; other goroutines that need to observe the controller
// must synchronise around it (see the loop package).
package pid
