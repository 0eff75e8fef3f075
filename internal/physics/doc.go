// Package physics provides plant models for closed-loop simulation.
//
// Each model implements the [dynamo.System] interface and takes a single
// actuator channel as control input:
//
//   - [Thermal]: first-order heater block (the classic windup case)
//   - [DCMotor]: armature-controlled motor, speed output
//   - [SpringMass]: damped oscillator with a force actuator
//   - [Pendulum]: torque-driven pendulum
//
// All models implement [dynamo.Configurable] for runtime parameter
// adjustment; physical quantities that must stay positive are rejected with
// [dynamo.ErrParameterBounds].
package physics
