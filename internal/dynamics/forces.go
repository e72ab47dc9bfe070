package dynamics

import (
	"math"

	"github.com/arobi/drone-hil-sim/internal/config"
)

// Model is the common shape every force/moment model exposes: refresh
// from (t, x, control), then report force and moment in its native frame.
type Model interface {
	Update(t float64, x State, control []float64)
	F() [3]float64
	M() [3]float64
}

// Weight is gravity acting at the CG, expressed in earth frame; the EOM
// rotates it to body before summing. M is always zero — gravity acts
// through the CG by construction.
type Weight struct {
	mass float64
	f    [3]float64
}

func NewWeight(mass float64) *Weight { return &Weight{mass: mass} }

const gravityMS2 = 9.81

func (w *Weight) Update(t float64, x State, control []float64) {
	w.f = [3]float64{0, 0, w.mass * gravityMS2}
}
func (w *Weight) F() [3]float64 { return w.f }
func (w *Weight) M() [3]float64 { return [3]float64{} }
func (w *Weight) Mass() float64 { return w.mass }

// Aero is the aerodynamic force/moment model: lift, drag, side force and
// moments from body velocity, angular rate and the configured linear
// stability-derivative coefficient table. Output is in the wind frame; the
// EOM rotates it into body with Wind2Body.
type Aero struct {
	cfg config.AeroCoeffTable
	bAero, cChord, s float64

	f [3]float64
	m [3]float64
}

func NewAero(cfg config.AeroCoeffTable, bAero, cChord, s float64) *Aero {
	return &Aero{cfg: cfg, bAero: bAero, cChord: cChord, s: s}
}

const airDensityKgM3 = 1.225 // sea-level ISA, dynamic pressure reference

func (a *Aero) Update(t float64, x State, control []float64) {
	u, v, w := x.Velocity()
	p, q, r := x.AngularRate()

	vt2 := u*u + v*v + w*w
	qbar := 0.5 * airDensityKgM3 * vt2

	var alpha, beta float64
	vt := math.Sqrt(vt2)
	if vt > 1e-6 {
		alpha = math.Atan2(w, u)
		sb := v / vt
		if sb > 1 {
			sb = 1
		} else if sb < -1 {
			sb = -1
		}
		beta = math.Asin(sb)
	}

	cl := a.cfg.CL0 + a.cfg.CLAlpha*alpha
	cd := a.cfg.CD0 + a.cfg.CDK*cl*cl
	cy := a.cfg.CYBeta * beta

	lift := qbar * a.s * cl
	drag := qbar * a.s * cd
	side := qbar * a.s * cy

	// wind axes: x = -drag, y = side, z = -lift
	a.f = [3]float64{-drag, side, -lift}

	var pNorm, qNorm, rNorm float64
	if vt > 1e-6 {
		pNorm = p * a.bAero / (2 * vt)
		qNorm = q * a.cChord / (2 * vt)
		rNorm = r * a.bAero / (2 * vt)
	}

	var deltaA, deltaE float64
	if len(control) >= 2 {
		// ailerons_controls: channel 0 left, channel 1 right; differential
		// deflection drives roll, symmetric deflection drives pitch.
		deltaA = (control[0] - control[1]) / 2
		deltaE = (control[0] + control[1]) / 2
	}

	cRoll := a.cfg.ClBeta*beta + a.cfg.ClP*pNorm + a.cfg.ClDeltaA*deltaA
	cPitch := a.cfg.CmAlpha*alpha + a.cfg.CmQ*qNorm + a.cfg.CmDeltaE*deltaE
	cYaw := a.cfg.CnBeta*beta + a.cfg.CnR*rNorm

	a.m = [3]float64{
		qbar * a.s * a.bAero * cRoll,
		qbar * a.s * a.cChord * cPitch,
		qbar * a.s * a.bAero * cYaw,
	}
}

func (a *Aero) F() [3]float64 { return a.f }
func (a *Aero) M() [3]float64 { return a.m }

// FixedWingThrust is a single-channel scalar control in [-1, 1] scaled by
// configured max thrust, force along body-x, moment from d x F.
type FixedWingThrust struct {
	maxThrustN float64
	d          [3]float64

	f [3]float64
	m [3]float64
}

func NewFixedWingThrust(maxThrustN float64, d [3]float64) *FixedWingThrust {
	return &FixedWingThrust{maxThrustN: maxThrustN, d: d}
}

func (t *FixedWingThrust) Update(tm float64, x State, control []float64) {
	var c float64
	if len(control) > 0 {
		c = control[0]
	}
	thrust := c * t.maxThrustN
	t.f = [3]float64{thrust, 0, 0}
	t.m = cross(t.d, t.f)
}

func (t *FixedWingThrust) F() [3]float64 { return t.f }
func (t *FixedWingThrust) M() [3]float64 { return t.m }

// QuadThrust is the four-rotor VTOL thrust model: each channel maps to a
// rotor thrust along body-down, net force is the sum, net moment combines
// lever arms and per-rotor reaction torque.
type QuadThrust struct {
	maxThrustN   float64
	l            [4]float64 // lever-arm length per rotor
	torqueCoeff  float64
	spinDir      [4]float64 // +-1 per rotor, reaction torque sign

	f [3]float64
	m [3]float64
}

func NewQuadThrust(maxThrustN float64, l [4]float64) *QuadThrust {
	return &QuadThrust{
		maxThrustN:  maxThrustN,
		l:           l,
		torqueCoeff: 0.02,
		spinDir:     [4]float64{1, -1, 1, -1},
	}
}

func (q *QuadThrust) Update(t float64, x State, control []float64) {
	var fz, mx, my, mz float64
	for i := 0; i < 4 && i < len(control); i++ {
		thrust := control[i] * q.maxThrustN
		fz -= thrust // body-down force is negative-z lift when thrust pushes up

		switch i % 4 {
		case 0:
			my += thrust * q.l[i]
		case 1:
			mx += thrust * q.l[i]
		case 2:
			my -= thrust * q.l[i]
		case 3:
			mx -= thrust * q.l[i]
		}
		mz += q.spinDir[i] * q.torqueCoeff * thrust
	}
	q.f = [3]float64{0, 0, fz}
	q.m = [3]float64{mx, my, mz}
}

func (q *QuadThrust) F() [3]float64 { return q.f }
func (q *QuadThrust) M() [3]float64 { return q.m }

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
