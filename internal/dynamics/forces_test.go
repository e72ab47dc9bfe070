package dynamics

import (
	"math"
	"testing"

	"github.com/arobi/drone-hil-sim/internal/config"
)

func TestWeightForceIsMassTimesGravity(t *testing.T) {
	w := NewWeight(2.0)
	w.Update(0, State{}, nil)
	f := w.F()
	if math.Abs(f[2]-2.0*gravityMS2) > 1e-9 {
		t.Errorf("weight F()[2] = %v, want %v", f[2], 2.0*gravityMS2)
	}
	if m := w.M(); m != ([3]float64{}) {
		t.Errorf("weight moment = %v, want zero", m)
	}
}

func TestFixedWingThrustScalesByMaxThrust(t *testing.T) {
	ft := NewFixedWingThrust(100, [3]float64{0, 0, 0})
	ft.Update(0, State{}, []float64{0.5})
	f := ft.F()
	if math.Abs(f[0]-50) > 1e-9 {
		t.Errorf("FixedWingThrust F()[0] = %v, want 50", f[0])
	}
}

func TestFixedWingThrustMomentFromLeverArm(t *testing.T) {
	ft := NewFixedWingThrust(10, [3]float64{0, 0, 1})
	ft.Update(0, State{}, []float64{1})
	m := ft.M()
	// d=(0,0,1), F=(10,0,0): d x F = (0*0-1*0, 1*10-0*0, 0*0-0*10) = (0, 10, 0)
	want := [3]float64{0, 10, 0}
	for i := range want {
		if math.Abs(m[i]-want[i]) > 1e-9 {
			t.Errorf("moment[%d] = %v, want %v", i, m[i], want[i])
		}
	}
}

func TestQuadThrustHoverForce(t *testing.T) {
	q := NewQuadThrust(25, [3]float64{0.3, 0.3, 0.3, 0.3})
	q.Update(0, State{}, []float64{1, 1, 1, 1})
	f := q.F()
	if math.Abs(f[2]-(-100)) > 1e-6 {
		t.Errorf("QuadThrust hover force z = %v, want -100", f[2])
	}
}

func TestQuadThrustBalancedMomentAtHover(t *testing.T) {
	q := NewQuadThrust(10, [3]float64{0.2, 0.2, 0.2, 0.2})
	q.Update(0, State{}, []float64{1, 1, 1, 1})
	m := q.M()
	if math.Abs(m[0]) > 1e-9 || math.Abs(m[1]) > 1e-9 {
		t.Errorf("balanced quad at hover should have zero roll/pitch moment, got %v", m)
	}
}

func TestAeroZeroAtZeroVelocityAndRate(t *testing.T) {
	cfg := config.AeroCoeffTable{CL0: 0.3, CLAlpha: 5.0, CD0: 0.02, CDK: 0.05}
	a := NewAero(cfg, 2.0, 0.5, 1.0)
	a.Update(0, State{}, nil) // zero velocity -> qbar = 0
	f := a.F()
	if f != ([3]float64{}) {
		t.Errorf("Aero force at zero airspeed = %v, want zero", f)
	}
}

func TestAeroAileronsProduceRollMoment(t *testing.T) {
	cfg := config.AeroCoeffTable{ClDeltaA: 0.1}
	a := NewAero(cfg, 2.0, 0.5, 1.0)

	var x State
	x[VelX] = 20 // forward airspeed so qbar > 0

	a.Update(0, x, []float64{1, -1}) // full differential aileron
	m := a.M()
	if m[0] <= 0 {
		t.Errorf("differential aileron deflection should produce positive roll moment coefficient contribution, got %v", m[0])
	}
}
