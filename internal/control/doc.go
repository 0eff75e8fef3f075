// Package control adapts controllers to the [dynamo.Controller] interface:
//
//   - [PID]: sampled anti-windup PID around one state component, at float32
//     or float64 controller precision
//   - [Constant]: open-loop fixed control vector
//   - [None]: zero control
//
// # Usage
//
//	c, err := control.NewPID[float64](control.PIDParams{
//		Kp: 0.2, Ki: 0.01, ControlGain: 0.5, Saturation: 1,
//		Setpoint: 60, SampleTime: 0.1,
//	})
//	sim := dynamo.New(plant, integ, c)
//
// [PID] implements [dynamo.Configurable] for live tuning and
// [dynamo.Resetter] so every simulation run starts from a clean history.
package control
