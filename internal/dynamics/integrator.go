package dynamics

// DerivativeFunc evaluates dx at a given (t, x), matching EOM.Evaluate's
// signature.
type DerivativeFunc func(t float64, x State, dt float64) Derivative

// Integrator is a fixed-step explicit RK4 stepper advancing a 12-vector
// state by one macro-step per call. Working vectors are struct fields
// reused across calls so Step never allocates.
type Integrator struct {
	h float64 // fixed step size, seconds

	k1, k2, k3, k4 Derivative
	xTmp           State
	lastDx         Derivative
}

// NewIntegrator builds a stepper with the given fixed step size.
func NewIntegrator(h float64) *Integrator {
	return &Integrator{h: h}
}

// StepSize reports the configured fixed step.
func (in *Integrator) StepSize() float64 { return in.h }

// Step advances x by one step of size h starting at time t, using f to
// evaluate the derivative. Returns the new state and the last-computed
// derivative (evaluated at the step's midpoint/end per classic RK4).
func (in *Integrator) Step(t float64, x State, f DerivativeFunc) (State, Derivative) {
	h := in.h

	in.k1 = f(t, x, h)
	in.xTmp = addScaled(x, in.k1, h/2)
	in.k2 = f(t+h/2, in.xTmp, h)
	in.xTmp = addScaled(x, in.k2, h/2)
	in.k3 = f(t+h/2, in.xTmp, h)
	in.xTmp = addScaled(x, in.k3, h)
	in.k4 = f(t+h, in.xTmp, h)

	var out State
	for i := 0; i < 12; i++ {
		out[i] = x[i] + (h/6)*(in.k1[i]+2*in.k2[i]+2*in.k3[i]+in.k4[i])
	}
	out.WrapAngles()

	in.lastDx = in.k4
	return out, in.lastDx
}

func addScaled(x State, dx Derivative, scale float64) State {
	var out State
	for i := 0; i < 12; i++ {
		out[i] = x[i] + dx[i]*scale
	}
	return out
}
