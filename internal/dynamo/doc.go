// Package dynamo provides the closed-loop simulation core.
//
// The package defines the fundamental interfaces and types used to run a
// controller against a simulated plant:
//
//   - [State]: vector representing plant state
//   - [System]: interface for plant dynamics (dX/dt = f(X, u, t))
//   - [Integrator]: numerical integrator interface
//   - [Controller]: feedback controller interface
//   - [Simulator]: orchestrates simulation runs
//
// # Example
//
//	plant := physics.NewThermal()
//	integ := integrators.NewRK4()
//	sim := dynamo.New(plant, integ, ctrl)
//	result, _ := sim.Run(ctx, x0, cfg)
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. Controllers carry state between
// steps, so parallel runs need their own controller and plant; [Ensemble]
// runs a set of independently built simulators concurrently.
package dynamo
