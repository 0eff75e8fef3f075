// Package loop runs a pid.Controller against live I/O.
//
// A Driver reads a Sensor, steps the controller with the measured sampling
// time and hands the result to an Actuator once per Period. The controller is
// guarded by a mutex so that setpoint, gains and reset can be changed from
// other goroutines while Run is active; observers receive value Snapshots.
//
// PlantSim closes the loop on a simulated dynamo.System advanced in
// wall-clock time, which is what the live TUI uses.
package loop
