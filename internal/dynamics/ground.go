package dynamics

// GroundCorrector clamps the state at a flat runway plane: the vehicle
// cannot fall through it and cannot slide once resting on it. This is an
// explicit coarse substitute for real ground contact.
type GroundCorrector struct {
	zGround float64
	eps     float64
}

// NewGroundCorrector builds a corrector for a runway at the given NED-down
// coordinate (z_ground), with tolerance eps.
func NewGroundCorrector(zGround, eps float64) *GroundCorrector {
	return &GroundCorrector{zGround: zGround, eps: eps}
}

// Correct applies the ground-contact rule after an integrator step. ve and
// ae are earth-frame velocity/acceleration (dx[0..2], and a corresponding
// earth-frame linear acceleration derived from dx[3..5]); dt is the step
// that produced x. Returns the corrected state, the corrected derivative
// (with dx[3..5] overwritten when clamped), and whether a clamp occurred.
func (g *GroundCorrector) Correct(x State, dx Derivative, ve, ae [3]float64, dt float64) (State, Derivative, bool) {
	z := x[PosD]
	descendingOrPinned := ve[2]+ae[2]*dt >= 0

	if z >= g.zGround-g.eps && descendingOrPinned {
		x[PosD] = g.zGround
		x[VelX], x[VelY], x[VelZ] = 0, 0, 0
		x[Roll], x[Pitch], x[Yaw] = 0, 0, 0
		x[RollRate], x[PitchRate], x[YawRate] = 0, 0, 0

		dx[VelX], dx[VelY], dx[VelZ] = 0, 0, gravityMS2
		return x, dx, true
	}

	return x, dx, false
}

// ZGround reports the configured runway plane.
func (g *GroundCorrector) ZGround() float64 { return g.zGround }
