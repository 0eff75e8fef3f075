// Package viz renders a running control loop in the terminal.
//
// [Model] is a Bubble Tea model fed by loop.Snapshot values. It plots the
// measured value against the setpoint and the control signal with asciigraph
// and shows the controller internals in a side panel.
//
// # Key Bindings
//
//	q     - Quit
//	r     - Reset controller (and plant, when a reset hook is set)
//	+/-   - Raise or lower the setpoint by one step
package viz
