package control

import "github.com/san-kum/pidlab/internal/dynamo"

// Constant holds a fixed control vector (open loop). Used to record the bare
// step response of a plant before closing the loop.
type Constant struct {
	U dynamo.Control
}

func NewConstant(u ...float64) *Constant {
	return &Constant{U: dynamo.Control(u)}
}

// Set replaces the held control; vectors of a different length are ignored.
func (c *Constant) Set(u dynamo.Control) {
	if len(u) != len(c.U) {
		return
	}
	copy(c.U, u)
}

func (c *Constant) Compute(x dynamo.State, t float64) dynamo.Control {
	return c.U.Clone()
}
