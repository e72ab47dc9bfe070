package sensors

import (
	"math"
	"testing"

	"github.com/arobi/drone-hil-sim/internal/dynamics"
)

func TestEncodeSensorZeroStateUsesFakeGroundAccel(t *testing.T) {
	e := NewEncoder()
	var x dynamics.State
	var dx dynamics.Derivative // all zero -> ground-clamped signature

	m := e.EncodeSensor(x, dx, 0, 15.0)

	if math.Abs(float64(m.AbsPressure)-1013.25) > 0.5 {
		t.Errorf("AbsPressure = %v, want ~1013.25 hPa at sea level", m.AbsPressure)
	}
	if m.Xgyro != 0 || m.Ygyro != 0 || m.Zgyro != 0 {
		t.Errorf("gyro = (%v,%v,%v), want zero at rest", m.Xgyro, m.Ygyro, m.Zgyro)
	}
	if math.Abs(float64(m.Zacc)-(-9.81)) > 1e-6 {
		t.Errorf("Zacc = %v, want -9.81 (fake ground acceleration)", m.Zacc)
	}
}

func TestEncodeGPSSwapsLatLonSlots(t *testing.T) {
	e := NewEncoder()
	var x dynamics.State
	x[dynamics.PosN] = 1000 // 1000 m north of origin

	m := e.EncodeGPS(x, 0)

	_, _, lonNorth := dynamics.NEDToLLA(x[dynamics.PosN], x[dynamics.PosE], x[dynamics.PosD])
	latNorth, _, _ := dynamics.NEDToLLA(x[dynamics.PosN], x[dynamics.PosE], x[dynamics.PosD])

	// documented swap: wire Lat field carries the lon slot, wire Lon field
	// carries the lat slot
	wantLatField := int32(math.Round(lonNorth * 1e7))
	wantLonField := int32(math.Round(latNorth * 1e7))

	if m.Lat != wantLatField {
		t.Errorf("HilGps.Lat = %v, want %v (swapped lon slot)", m.Lat, wantLatField)
	}
	if m.Lon != wantLonField {
		t.Errorf("HilGps.Lon = %v, want %v (swapped lat slot)", m.Lon, wantLonField)
	}
}

func TestEncodeGPSCourseOverGroundUsesDocumentedAxisOrder(t *testing.T) {
	e := NewEncoder()
	var x dynamics.State
	x[dynamics.VelX] = 10 // body-x forward, level attitude -> earth north
	x[dynamics.VelY] = 0

	m := e.EncodeGPS(x, 0)

	want := math.Atan2(x[dynamics.VelX], x[dynamics.VelY]) * 180 / math.Pi * 100
	if want < 0 {
		want += 36000
	}
	if math.Abs(float64(m.Cog)-want) > 1 {
		t.Errorf("Cog = %v, want %v (atan2(velX, velY) ordering)", m.Cog, want)
	}
}

func TestEncodeGPSZeroYawRemappedToOne(t *testing.T) {
	e := NewEncoder()
	var x dynamics.State
	x[dynamics.Yaw] = 0

	m := e.EncodeGPS(x, 0)
	if m.YawDeg != 1 {
		t.Errorf("YawDeg at zero yaw = %v, want 1 (zero remapped)", m.YawDeg)
	}
}

func TestEncodeGPSPayloadFixTypeAndSatellites(t *testing.T) {
	e := NewEncoder()
	m := e.EncodeGPS(dynamics.State{}, 0)
	if m.FixType != 3 {
		t.Errorf("FixType = %v, want 3 (3D fix)", m.FixType)
	}
	if m.SatellitesVisible != 255 {
		t.Errorf("SatellitesVisible = %v, want 255 (unknown/not simulated)", m.SatellitesVisible)
	}
}

func TestEncodeStateQuaternionUnitNorm(t *testing.T) {
	e := NewEncoder()
	var x dynamics.State
	x[dynamics.Roll] = 0.3
	x[dynamics.Pitch] = -0.2
	x[dynamics.Yaw] = 1.1

	m := e.EncodeStateQuaternion(x, dynamics.Derivative{}, 0, [3]float64{})
	n2 := float64(m.AttitudeQuaternion[0])*float64(m.AttitudeQuaternion[0]) +
		float64(m.AttitudeQuaternion[1])*float64(m.AttitudeQuaternion[1]) +
		float64(m.AttitudeQuaternion[2])*float64(m.AttitudeQuaternion[2]) +
		float64(m.AttitudeQuaternion[3])*float64(m.AttitudeQuaternion[3])
	if math.Abs(n2-1) > 1e-4 {
		t.Errorf("attitude quaternion norm^2 = %v, want ~1", n2)
	}
}

func TestEncodeSystemTimeFields(t *testing.T) {
	e := NewEncoder()
	m := e.EncodeSystemTime(1_700_000_000_000_000, 5_000_000)
	if m.TimeUnixUsec != 1_700_000_000_000_000 {
		t.Errorf("TimeUnixUsec = %v, want passthrough", m.TimeUnixUsec)
	}
	if m.TimeBootMs != 5000 {
		t.Errorf("TimeBootMs = %v, want 5000 (usec/1000)", m.TimeBootMs)
	}
}
