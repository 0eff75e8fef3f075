// Package analysis characterizes recorded closed-loop responses.
//
//   - [StepResponse]: rise time, peak, overshoot, settling time and
//     steady-state error of a setpoint step
//
// # Usage
//
//	info, err := analysis.StepResponse(result.Times, result.Series(0), 60)
//	if err == nil && info.Settled {
//	    fmt.Printf("settled after %.2fs\n", info.SettlingTime)
//	}
package analysis
