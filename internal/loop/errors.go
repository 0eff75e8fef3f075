package loop

import "errors"

var (
	ErrAlreadyRunning = errors.New("loop: driver already running")
	ErrInvalidPeriod  = errors.New("loop: period must be positive")
	ErrNilIO          = errors.New("loop: sensor and actuator are required")
	ErrElapsed        = errors.New("loop: elapsed time out of range")
)
