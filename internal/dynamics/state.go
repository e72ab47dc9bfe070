// Package dynamics implements the rigid-body 6-DOF equations of motion for
// the HIL flight dynamics simulator: state representation, rotation
// utilities, force/moment models, the fixed-step integrator, the
// ground-contact corrector, and the actuator controllers that feed it.
package dynamics

import "math"

// State is the 12-dimensional simulation state vector, NED frame
// conventions throughout:
//
//	x[0..2]  body-frame origin position in earth NED (m)
//	x[3..5]  body-frame linear velocity (m/s)
//	x[6..8]  orientation as Euler angles roll/pitch/yaw (rad)
//	x[9..11] body-frame angular velocity (rad/s)
type State [12]float64

// Derivative has the same shape as State but in derivative units:
//
//	dx[0..2]  earth-frame velocity (m/s)
//	dx[3..5]  body-frame linear acceleration (m/s^2)
//	dx[6..8]  Euler-angle rates (rad/s)
//	dx[9..11] body-frame angular acceleration (rad/s^2)
type Derivative [12]float64

// Index accessors into State/Derivative. Named so call sites read as
// x[PosX] rather than a bare x[0].
const (
	PosN = iota
	PosE
	PosD
	VelX
	VelY
	VelZ
	Roll
	Pitch
	Yaw
	RollRate
	PitchRate
	YawRate
)

// Position returns the NED position components.
func (s State) Position() (n, e, d float64) {
	return s[PosN], s[PosE], s[PosD]
}

// Velocity returns the body-frame linear velocity components.
func (s State) Velocity() (u, v, w float64) {
	return s[VelX], s[VelY], s[VelZ]
}

// Euler returns roll, pitch, yaw in radians.
func (s State) Euler() (phi, theta, psi float64) {
	return s[Roll], s[Pitch], s[Yaw]
}

// AngularRate returns the body-frame angular velocity components.
func (s State) AngularRate() (p, q, r float64) {
	return s[RollRate], s[PitchRate], s[YawRate]
}

// WrapAngles normalizes the orientation components into (-pi, pi], per the
// state invariant in the data model.
func (s *State) WrapAngles() {
	s[Roll] = wrapPi(s[Roll])
	s[Pitch] = wrapPi(s[Pitch])
	s[Yaw] = wrapPi(s[Yaw])
}

func wrapPi(a float64) float64 {
	const twoPi = 2 * math.Pi
	for a > math.Pi {
		a -= twoPi
	}
	for a <= -math.Pi {
		a += twoPi
	}
	return a
}
