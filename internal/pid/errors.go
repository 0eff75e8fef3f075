package pid

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates gains or limits that would make Step degenerate.
	ErrInvalidConfig = errors.New("pid: invalid configuration")

	// ErrInvalidSampling indicates a sampling time the derivative filter cannot divide by.
	ErrInvalidSampling = errors.New("pid: invalid sampling time")
)

// ConfigError names the configuration field that failed validation.
type ConfigError struct {
	Field   string
	Value   float64
	Wrapped error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s = %g", e.Wrapped, e.Field, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Wrapped
}
