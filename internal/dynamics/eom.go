package dynamics

import "gonum.org/v1/gonum/mat"

// EOM is the mixed rigid-body equations of motion: it samples the three
// actuator controllers, evaluates the four force/moment models, and
// assembles them into a state derivative. It owns the airborne flag —
// the only component allowed to set it true; only the ground-contact
// corrector may set it false.
type EOM struct {
	weight    *Weight
	aero      *Aero
	fwThrust  *FixedWingThrust
	quad      *QuadThrust
	jInv      *mat.Dense
	j         *mat.Dense

	fixedWing *Controller
	ailerons  *Controller
	vtolProps *Controller

	// Sampled once per macro-step by SampleControls, not per RK4 sub-stage:
	// the controllers' lag models are stateful, so letting the integrator's
	// four sub-stage Evaluate calls each advance them by the full macro-step
	// h would lag the motors 4x faster than their configured time constant.
	fwControl, ailControl, quadControl []float64

	airborne bool
}

// NewEOM wires the EOM to its force/moment models and the three actuator
// controllers it samples once per macro-step via SampleControls. Controller
// references are bound once at setup and never reassigned — the EOM does
// not own the controllers, it only reads their current setpoint.
func NewEOM(weight *Weight, aero *Aero, fwThrust *FixedWingThrust, quad *QuadThrust, j [3][3]float64, fixedWing, ailerons, vtolProps *Controller) *EOM {
	jDense := mat.NewDense(3, 3, []float64{
		j[0][0], j[0][1], j[0][2],
		j[1][0], j[1][1], j[1][2],
		j[2][0], j[2][1], j[2][2],
	})
	var jInv mat.Dense
	jInv.Inverse(jDense)

	return &EOM{
		weight: weight, aero: aero, fwThrust: fwThrust, quad: quad,
		j: jDense, jInv: &jInv,
		fixedWing: fixedWing, ailerons: ailerons, vtolProps: vtolProps,
	}
}

// Airborne reports whether the vehicle is currently considered off the
// ground.
func (e *EOM) Airborne() bool { return e.airborne }

// SetAirborne lets the ground-contact corrector force the flag false; the
// EOM never calls this on itself.
func (e *EOM) SetAirborne(v bool) { e.airborne = v }

// SampleControls advances each controller's setpoint (and, where
// configured, its first-order motor lag) by dt seconds and caches the
// result for every subsequent Evaluate call until the next SampleControls.
// The caller advances this once per simulated macro-step, never once per
// RK4 sub-stage — Evaluate runs four times per Integrator.Step, and a lag
// model re-advanced on each of those calls would relax four times faster
// than its configured time constant.
func (e *EOM) SampleControls(dt float64) {
	e.fwControl = e.fixedWing.Control(dt)
	e.ailControl = e.ailerons.Control(dt)
	e.quadControl = e.vtolProps.Control(dt)
}

// Evaluate computes dx from (t, x), per the mixed EOM steps: update force
// models (gated by airborne) from the controls last cached by
// SampleControls, rotate aero into body, assemble linear and angular
// derivatives, update the airborne flag. dt is unused here — control
// advance happens only in SampleControls.
func (e *EOM) Evaluate(t float64, x State, dt float64) Derivative {
	fwControl := e.fwControl
	ailControl := e.ailControl
	quadControl := e.quadControl

	if e.airborne {
		e.weight.Update(t, x, nil)
		e.aero.Update(t, x, ailControl)
		e.fwThrust.Update(t, x, fwControl)
		e.quad.Update(t, x, quadControl)
	} else {
		e.aero.Update(t, x, ailControl)
		e.quad.Update(t, x, quadControl)
	}

	aeroBody := RotateVec(Wind2Body(x), e.aero.F())

	var dx Derivative

	b2e := Body2Earth(x)
	ve := RotateVec(b2e, [3]float64{x[VelX], x[VelY], x[VelZ]})
	dx[PosN], dx[PosE], dx[PosD] = ve[0], ve[1], ve[2]

	var fThrustFW, fWeightBody, fQuad [3]float64
	var mThrustFW, mAero, mQuad [3]float64
	mass := e.weight.Mass()

	if e.airborne {
		fThrustFW = e.fwThrust.F()
		mThrustFW = e.fwThrust.M()
		fWeightBody = RotateVec(Earth2Body(x), e.weight.F())
	}
	fQuad = e.quad.F()
	mQuad = e.quad.M()
	mAero = e.aero.M()

	dx[VelX] = (fThrustFW[0] + fWeightBody[0] + aeroBody[0] + fQuad[0]) / mass
	dx[VelY] = (fThrustFW[1] + fWeightBody[1] + aeroBody[1] + fQuad[1]) / mass
	dx[VelZ] = (fThrustFW[2] + fWeightBody[2] + aeroBody[2] + fQuad[2]) / mass

	rateRates := RotateVec(BodyRate2EulerRate(x), [3]float64{x[RollRate], x[PitchRate], x[YawRate]})
	dx[Roll], dx[Pitch], dx[Yaw] = rateRates[0], rateRates[1], rateRates[2]

	omega := mat.NewVecDense(3, []float64{x[RollRate], x[PitchRate], x[YawRate]})
	var jOmega mat.VecDense
	jOmega.MulVec(e.j, omega)
	gyroscopic := cross([3]float64{x[RollRate], x[PitchRate], x[YawRate]}, [3]float64{jOmega.AtVec(0), jOmega.AtVec(1), jOmega.AtVec(2)})

	tau := [3]float64{
		mThrustFW[0] + mAero[0] + mQuad[0] - gyroscopic[0],
		mThrustFW[1] + mAero[1] + mQuad[1] - gyroscopic[1],
		mThrustFW[2] + mAero[2] + mQuad[2] - gyroscopic[2],
	}
	angAccel := RotateVec(e.jInv, tau)
	dx[RollRate], dx[PitchRate], dx[YawRate] = angAccel[0], angAccel[1], angAccel[2]

	// Weight's body-down component is m*g regardless of whether the weight
	// model ran this tick (it is only skipped while not airborne, where
	// the ground corrector holds the vehicle at rest anyway).
	e.airborne = abs(fQuad[2]) >= gravityMS2*mass

	return dx
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
