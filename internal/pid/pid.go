package pid

// Config holds the gains and anti-windup parameters of a Controller.
type Config[T Float] struct {
	ProportionGain T
	IntegralGain   T
	DerivativeGain T
	// TimeConstant of the derivative low-pass filter. Zero disables filtering.
	TimeConstant T

	// ControlGain weights the integral of the saturation excess that is
	// subtracted from the integral term (back-calculation).
	ControlGain T
	// Saturation bounds the output to [-Saturation, Saturation].
	Saturation T
}

// Validate rejects configurations Step cannot run with.
func (c Config[T]) Validate() error {
	gains := []struct {
		name  string
		value T
	}{
		{"proportion_gain", c.ProportionGain},
		{"integral_gain", c.IntegralGain},
		{"derivative_gain", c.DerivativeGain},
		{"time_constant", c.TimeConstant},
		{"control_gain", c.ControlGain},
		{"saturation", c.Saturation},
	}
	for _, g := range gains {
		if !isFinite(g.value) {
			return &ConfigError{Field: g.name, Value: float64(g.value), Wrapped: ErrInvalidConfig}
		}
	}
	if c.Saturation <= 0 {
		return &ConfigError{Field: "saturation", Value: float64(c.Saturation), Wrapped: ErrInvalidConfig}
	}
	if c.TimeConstant < 0 {
		return &ConfigError{Field: "time_constant", Value: float64(c.TimeConstant), Wrapped: ErrInvalidConfig}
	}
	return nil
}

// State is a copy of the per-step history of a Controller.
type State[T Float] struct {
	PrevError       T
	ErrorIntegral   T
	ErrorDerivative T

	// SatError is how far the last raw control exceeded the bound.
	SatError         T
	PrevSatError     T
	SatErrorIntegral T
}

// Controller is a saturated PID regulator with a filtered derivative and
// back-calculation anti-windup. It is not safe for concurrent use.
type Controller[T Float] struct {
	cfg   Config[T]
	state State[T]
}

// New validates cfg and returns a controller with zeroed state.
func New[T Float](cfg Config[T]) (*Controller[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller[T]{cfg: cfg}, nil
}

// MustNew is like New but panics on an invalid config.
func MustNew[T Float](cfg Config[T]) *Controller[T] {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// Step returns the saturated control for the latest error sample, given the
// time elapsed since the previous sample. It never fails; samplingTime must
// satisfy ValidateSampling. Arithmetic is not range checked: a NaN error, or
// integrals that overflow to Inf for samples near the limit of T, yield a NaN
// control that Clamp passes through.
func (c *Controller[T]) Step(err, samplingTime T) T {
	raw := c.proportion(err) + c.integral(err, samplingTime) + c.derivative(err, samplingTime)
	control := Clamp(raw, -c.cfg.Saturation, c.cfg.Saturation)

	// prevSatError must take the old satError before it is overwritten so the
	// next integral step spans the right two samples.
	c.state.PrevSatError = c.state.SatError
	c.state.SatError = raw - control
	c.state.PrevError = err

	return control
}

func (c *Controller[T]) proportion(err T) T {
	return c.cfg.ProportionGain * err
}

func (c *Controller[T]) derivative(err, samplingTime T) T {
	c.state.ErrorDerivative = FilteredDerivative(err, c.state.PrevError, samplingTime,
		c.state.ErrorDerivative, c.cfg.TimeConstant)
	return c.cfg.DerivativeGain * c.state.ErrorDerivative
}

func (c *Controller[T]) integral(err, samplingTime T) T {
	c.state.ErrorIntegral += Trapezoid(err, c.state.PrevError, samplingTime)
	c.state.SatErrorIntegral += Trapezoid(c.state.SatError, c.state.PrevSatError, samplingTime)
	return c.cfg.IntegralGain*c.state.ErrorIntegral - c.cfg.ControlGain*c.state.SatErrorIntegral
}

// Reset clears the step history and keeps the configuration.
func (c *Controller[T]) Reset() {
	c.state = State[T]{}
}

// Config returns the active configuration.
func (c *Controller[T]) Config() Config[T] {
	return c.cfg
}

// SetConfig replaces the configuration between steps. State is kept.
func (c *Controller[T]) SetConfig(cfg Config[T]) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// State returns a copy of the step history.
func (c *Controller[T]) State() State[T] {
	return c.state
}
