package physics

import (
	"fmt"

	"github.com/san-kum/pidlab/internal/dynamo"
)

// input returns the first control channel, or zero for an empty control.
func input(u dynamo.Control) float64 {
	if len(u) == 0 {
		return 0
	}
	return u[0]
}

// param is a named, positively bounded plant parameter.
type param struct {
	name     string
	ptr      *float64
	positive bool
}

func getParams(ps []param) map[string]float64 {
	out := make(map[string]float64, len(ps))
	for _, p := range ps {
		out[p.name] = *p.ptr
	}
	return out
}

func setParam(ps []param, name string, value float64) error {
	for _, p := range ps {
		if p.name != name {
			continue
		}
		if p.positive && value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", dynamo.ErrParameterBounds, name, value)
		}
		*p.ptr = value
		return nil
	}
	return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
}
