package dynamics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Body2Earth returns the rotation matrix that carries a body-frame vector
// into the earth NED frame, using the ZYX (yaw-pitch-roll) Euler convention.
func Body2Earth(x State) *mat.Dense {
	phi, theta, psi := x.Euler()
	sr, cr := math.Sincos(phi)
	sp, cp := math.Sincos(theta)
	sy, cy := math.Sincos(psi)

	return mat.NewDense(3, 3, []float64{
		cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr,
		sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr,
		-sp, cp * sr, cp * cr,
	})
}

// Earth2Body returns the inverse of Body2Earth, i.e. its transpose (the
// rotation is orthonormal).
func Earth2Body(x State) *mat.Dense {
	var et mat.Dense
	et.CloneFrom(Body2Earth(x).T())
	return &et
}

// Wind2Body rotates a vector expressed in the wind frame (aligned with
// relative airspeed) into the body frame, using angle of attack (alpha) and
// sideslip (beta) derived from body-frame velocity.
func Wind2Body(x State) *mat.Dense {
	u, v, w := x.Velocity()
	alpha := math.Atan2(w, u)
	vt := math.Sqrt(u*u + v*v + w*w)
	var beta float64
	if vt > 1e-9 {
		beta = math.Asin(v / vt)
	}

	sa, ca := math.Sincos(alpha)
	sb, cb := math.Sincos(beta)

	return mat.NewDense(3, 3, []float64{
		ca * cb, -ca * sb, -sa,
		sb, cb, 0,
		sa * cb, -sa * sb, ca,
	})
}

// BodyRate2EulerRate returns the matrix mapping body-frame angular rates
// (p, q, r) to Euler-angle rates (phi_dot, theta_dot, psi_dot). Singular at
// theta = +-pi/2; the simulator's flight envelope is not expected to reach
// it (the classic gimbal-lock caveat of an Euler-angle state).
func BodyRate2EulerRate(x State) *mat.Dense {
	phi, theta, _ := x.Euler()
	sr, cr := math.Sincos(phi)
	ct := math.Cos(theta)
	tt := math.Tan(theta)

	return mat.NewDense(3, 3, []float64{
		1, sr * tt, cr * tt,
		0, cr, -sr,
		0, sr / ct, cr / ct,
	})
}

// EulerToQuaternion converts roll/pitch/yaw (radians) to a unit quaternion
// (qx, qy, qz, qw) using the ZYX convention spelled out bit-exactly because
// it is part of the autopilot wire ABI.
func EulerToQuaternion(phi, theta, psi float64) (qx, qy, qz, qw float64) {
	sr, cr := math.Sincos(phi / 2)
	sp, cp := math.Sincos(theta / 2)
	sy, cy := math.Sincos(psi / 2)

	qx = sr*cp*cy - cr*sp*sy
	qy = cr*sp*cy + sr*cp*sy
	qz = cr*cp*sy - sr*sp*cy
	qw = cr*cp*cy + sr*sp*sy
	return
}

// RotateVec applies a 3x3 rotation matrix to a 3-vector.
func RotateVec(r *mat.Dense, v [3]float64) [3]float64 {
	var out mat.VecDense
	out.MulVec(r, mat.NewVecDense(3, v[:]))
	return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}
