// Package sensors projects the simulated state into the bit-exact sensor
// readings the autopilot expects: attitude quaternion, IMU, barometer,
// magnetometer and GPS. Every conversion here is part of the autopilot
// wire ABI and must match the documented formulas exactly, not just
// approximately.
package sensors

import (
	"math"

	"github.com/arobi/drone-hil-sim/internal/dynamics"
)

// HilStateQuaternion mirrors the MAVLink HIL_STATE_QUATERNION fields this
// simulator populates.
type HilStateQuaternion struct {
	TimeUsec                                uint64
	AttitudeQuaternion                      [4]float32 // qx, qy, qz, qw
	RollSpeed, PitchSpeed, YawSpeed         float32
	Lat, Lon                                int32 // degE7
	Alt                                     int32 // mm
	Vx, Vy, Vz                              int16 // cm/s
	IndAirspeed, TrueAirspeed               uint16
	Xacc, Yacc, Zacc                        int16 // milli-g
}

// HilSensor mirrors HIL_SENSOR.
type HilSensor struct {
	TimeUsec                uint64
	Xacc, Yacc, Zacc        float32 // m/s^2
	Xgyro, Ygyro, Zgyro     float32 // rad/s
	Xmag, Ymag, Zmag        float32 // gauss
	AbsPressure             float32 // hPa
	DiffPressure            float32 // hPa
	PressureAlt             float32
	Temperature             float32
	FieldsUpdated           uint32
}

// HilGps mirrors HIL_GPS, including the documented lat/lon swap.
type HilGps struct {
	TimeUsec                     uint64
	FixType                      uint8
	Lat, Lon                     int32 // degE7, SWAPPED per spec: Lat <- lat_lon_alt[1], Lon <- lat_lon_alt[0]
	Alt                          int32 // mm
	Eph, Epv                     uint16
	Vel                          uint16 // cm/s
	Vn, Ve, Vd                   int16  // cm/s
	Cog                          uint16 // cdeg
	SatellitesVisible            uint8
	YawDeg                       uint16 // cdeg, 0 remapped to 1
}

// SystemTime mirrors SYSTEM_TIME.
type SystemTime struct {
	TimeUnixUsec uint64
	TimeBootMs   uint32
}

// fieldsUpdatedMask is the fixed HIL_SENSOR bitmask this simulator always
// reports: accel+gyro+mag+baro+diff_pressure+temperature bits set.
const fieldsUpdatedMask = 0b111 | 0b111000 | 0b111000000 | 0b1111000000000

// Encoder turns a dynamics state/derivative pair into the outbound sensor
// message set. latOrigin/lonOrigin anchor the flat-earth projection.
type Encoder struct{}

// NewEncoder constructs a sensor encoder. The encoder is stateless: every
// method is a pure function of its arguments.
func NewEncoder() *Encoder { return &Encoder{} }

// EncodeStateQuaternion builds HIL_STATE_QUATERNION from state x,
// derivative dx, simulated time in microseconds, environment wind (m/s,
// NED) and indicated airspeed placeholder.
func (e *Encoder) EncodeStateQuaternion(x dynamics.State, dx dynamics.Derivative, timeUsec uint64, envWindMS [3]float64) HilStateQuaternion {
	phi, theta, psi := x.Euler()
	qx, qy, qz, qw := dynamics.EulerToQuaternion(phi, theta, psi)

	n, e2, d := x.Position()
	lat, lon, alt := dynamics.NEDToLLA(n, e2, d)

	groundSpeed := [3]float64{dx[dynamics.PosN] * 100, dx[dynamics.PosE] * 100, dx[dynamics.PosD] * 100}

	acc := fakeGroundAcc(dx)

	windCmS := [3]float64{envWindMS[0] * 100, envWindMS[1] * 100, envWindMS[2] * 100}
	trueWind := math.Sqrt(
		sq(groundSpeed[0]+windCmS[0]) + sq(groundSpeed[1]+windCmS[1]) + sq(groundSpeed[2]+windCmS[2]),
	)

	return HilStateQuaternion{
		TimeUsec:            timeUsec,
		AttitudeQuaternion:  [4]float32{float32(qx), float32(qy), float32(qz), float32(qw)},
		RollSpeed:           float32(x[dynamics.RollRate]),
		PitchSpeed:          float32(x[dynamics.PitchRate]),
		YawSpeed:            float32(x[dynamics.YawRate]),
		Lat:                 int32(math.Round(lat * 1e7)),
		Lon:                 int32(math.Round(lon * 1e7)),
		Alt:                 int32(math.Round(alt * 1000)),
		Vx:                  int16(math.Round(groundSpeed[0])),
		Vy:                  int16(math.Round(groundSpeed[1])),
		Vz:                  int16(math.Round(groundSpeed[2])),
		TrueAirspeed:        uint16(math.Round(trueWind)),
		Xacc:                int16(math.Round(acc[0] / 9.81 * 1000)),
		Yacc:                int16(math.Round(acc[1] / 9.81 * 1000)),
		Zacc:                int16(math.Round(acc[2] / 9.81 * 1000)),
	}
}

// EncodeSensor builds HIL_SENSOR from state, derivative, temperature (C)
// and an altitude-derived pressure.
func (e *Encoder) EncodeSensor(x dynamics.State, dx dynamics.Derivative, timeUsec uint64, temperatureC float64) HilSensor {
	acc := fakeGroundAcc(dx)
	_, _, altD := x.Position()
	alt := -altD

	pressurePa := dynamics.AltToBaro(alt)

	n, e2, d := x.Position()
	lat, lon, _ := dynamics.NEDToLLA(n, e2, d)
	bn, be, bd := dynamics.MagneticField(lat, lon, alt)

	return HilSensor{
		TimeUsec:      timeUsec,
		Xacc:          float32(acc[0]),
		Yacc:          float32(acc[1]),
		Zacc:          float32(acc[2]),
		Xgyro:         float32(x[dynamics.RollRate]),
		Ygyro:         float32(x[dynamics.PitchRate]),
		Zgyro:         float32(x[dynamics.YawRate]),
		Xmag:          float32(bn),
		Ymag:          float32(be),
		Zmag:          float32(bd),
		AbsPressure:   float32(pressurePa / 100),
		DiffPressure:  0,
		PressureAlt:   float32(alt),
		Temperature:   float32(temperatureC),
		FieldsUpdated: fieldsUpdatedMask,
	}
}

// EncodeGPS builds HIL_GPS, reproducing the documented lat/lon swap and
// the x/y course-over-ground ordering exactly as specified.
func (e *Encoder) EncodeGPS(x dynamics.State, timeUsec uint64) HilGps {
	n, e2, d := x.Position()
	lat, lon, alt := dynamics.NEDToLLA(n, e2, d)
	latLonAlt := [3]float64{lat, lon, alt}

	ve := dynamics.RotateVec(dynamics.Body2Earth(x), [3]float64{x[dynamics.VelX], x[dynamics.VelY], x[dynamics.VelZ]})
	vn, veE, vd := ve[0]*100, ve[1]*100, ve[2]*100

	groundSpeed := math.Sqrt(vn*vn + veE*veE)

	cog := math.Atan2(x[dynamics.VelX], x[dynamics.VelY]) * 180 / math.Pi * 100
	if cog < 0 {
		cog += 36000
	}

	yawCdeg := int32(math.Round(x[dynamics.Yaw] * 18000 / math.Pi))
	if yawCdeg < 0 {
		yawCdeg += 36000
	}
	if yawCdeg == 0 {
		yawCdeg = 1
	}

	return HilGps{
		TimeUsec:          timeUsec,
		FixType:           3,
		Lat:               int32(math.Round(latLonAlt[1] * 1e7)), // swapped: Lat <- lon slot
		Lon:               int32(math.Round(latLonAlt[0] * 1e7)), // swapped: Lon <- lat slot
		Alt:               int32(math.Round(latLonAlt[2] * 1000)),
		Eph:               30,
		Epv:               40,
		Vel:               uint16(math.Round(groundSpeed)),
		Vn:                int16(math.Round(vn)),
		Ve:                int16(math.Round(veE)),
		Vd:                int16(math.Round(vd)),
		Cog:               uint16(math.Round(cog)),
		SatellitesVisible: 255,
		YawDeg:            uint16(yawCdeg),
	}
}

// EncodeSystemTime builds SYSTEM_TIME from wall-clock microseconds and
// simulated time in microseconds.
func (e *Encoder) EncodeSystemTime(wallClockUsec uint64, simTimeUsec uint64) SystemTime {
	return SystemTime{
		TimeUnixUsec: wallClockUsec,
		TimeBootMs:   uint32(simTimeUsec / 1000),
	}
}

// fakeGroundAcc applies the documented fake-ground substitution: when the
// vertical acceleration is (near) exactly zero — the signature of a
// ground-clamped state that zeroed dx[3..5] — substitute -9.81 m/s^2 so
// the accelerometer does not report a physically impossible zero-g
// reading while resting on the runway.
func fakeGroundAcc(dx dynamics.Derivative) [3]float64 {
	acc := [3]float64{dx[dynamics.VelX], dx[dynamics.VelY], dx[dynamics.VelZ]}
	if math.Abs(dx[dynamics.VelZ]) < 1e-4 {
		acc[2] = -9.81
	}
	return acc
}

func sq(v float64) float64 { return v * v }
