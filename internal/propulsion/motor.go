// Package propulsion implements the optional first-order motor lag that
// backs the thrust-producing actuator controllers: a commanded setpoint
// does not reach a propeller's actual thrust instantaneously, and the
// spec's actuator controllers allow this to be modeled explicitly rather
// than folded into an inline exponential at the call site.
package propulsion

import "math"

// Model is a single-rotor first-order lag: a commanded normalized setpoint
// in [-1, 1] relaxes toward its target with time constant Tau. It returns
// the lagged setpoint, not a force — the force/moment models own the
// newton-scale conversion via their own configured max thrust, so a
// setpoint's lag and its scaling are never applied twice. Grounded on the
// teacher's MotorModel.Update shape (state struct advanced by repeated
// dt-sized calls), trimmed to the single first-order relationship the spec
// actually calls for — thermal, efficiency-curve and current-draw modeling
// from the teacher's electric motor sim are dropped (see DESIGN.md: no
// energy/thermal component exists in this simulator's scope).
type Model struct {
	tau float64 // s, first-order lag time constant

	current float64 // current lagged setpoint, [-1, 1]
}

// NewModel constructs a lag model. A non-positive tau means the model is
// a pure passthrough (no lag), matching a minimal config's bare
// scalar-scaling behavior.
func NewModel(tau float64) *Model {
	return &Model{tau: tau}
}

// Advance steps the lagged setpoint toward target by dt seconds and
// returns the resulting value.
func (m *Model) Advance(target float64, dt float64) float64 {
	if m.tau <= 0 {
		m.current = target
	} else {
		alpha := 1 - math.Exp(-dt/m.tau)
		m.current += (target - m.current) * alpha
	}
	return m.current
}

// Current returns the lagged setpoint without advancing it.
func (m *Model) Current() float64 {
	return m.current
}
