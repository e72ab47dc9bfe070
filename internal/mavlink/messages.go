package mavlink

import (
	"encoding/binary"
	"math"

	"github.com/arobi/drone-hil-sim/internal/sensors"
)

func putF32(b []byte, off int, v float32) { binary.LittleEndian.PutUint32(b[off:off+4], math.Float32bits(v)) }
func putU16(b []byte, off int, v uint16)   { binary.LittleEndian.PutUint16(b[off:off+2], v) }
func putI16(b []byte, off int, v int16)    { binary.LittleEndian.PutUint16(b[off:off+2], uint16(v)) }
func putU32(b []byte, off int, v uint32)   { binary.LittleEndian.PutUint32(b[off:off+4], v) }
func putI32(b []byte, off int, v int32)    { binary.LittleEndian.PutUint32(b[off:off+4], uint32(v)) }
func putU64(b []byte, off int, v uint64)   { binary.LittleEndian.PutUint64(b[off:off+8], v) }

func getF32(b []byte, off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[off : off+4])) }
func getU16(b []byte, off int) uint16  { return binary.LittleEndian.Uint16(b[off : off+2]) }
func getU32(b []byte, off int) uint32  { return binary.LittleEndian.Uint32(b[off : off+4]) }
func getU64(b []byte, off int) uint64  { return binary.LittleEndian.Uint64(b[off : off+8]) }

// EncodeHilStateQuaternion packs sensors.HilStateQuaternion into its
// MAVLink v2 wire layout.
func EncodeHilStateQuaternion(m sensors.HilStateQuaternion) []byte {
	b := make([]byte, 64)
	putU64(b, 0, m.TimeUsec)
	for i, q := range m.AttitudeQuaternion {
		putF32(b, 8+i*4, q)
	}
	putF32(b, 24, m.RollSpeed)
	putF32(b, 28, m.PitchSpeed)
	putF32(b, 32, m.YawSpeed)
	putI32(b, 36, m.Lat)
	putI32(b, 40, m.Lon)
	putI32(b, 44, m.Alt)
	putI16(b, 48, m.Vx)
	putI16(b, 50, m.Vy)
	putI16(b, 52, m.Vz)
	putU16(b, 54, m.IndAirspeed)
	putU16(b, 56, m.TrueAirspeed)
	putI16(b, 58, m.Xacc)
	putI16(b, 60, m.Yacc)
	putI16(b, 62, m.Zacc)
	return b
}

// EncodeHilSensor packs sensors.HilSensor into its MAVLink v2 wire layout.
func EncodeHilSensor(m sensors.HilSensor) []byte {
	b := make([]byte, 64)
	putU64(b, 0, m.TimeUsec)
	putF32(b, 8, m.Xacc)
	putF32(b, 12, m.Yacc)
	putF32(b, 16, m.Zacc)
	putF32(b, 20, m.Xgyro)
	putF32(b, 24, m.Ygyro)
	putF32(b, 28, m.Zgyro)
	putF32(b, 32, m.Xmag)
	putF32(b, 36, m.Ymag)
	putF32(b, 40, m.Zmag)
	putF32(b, 44, m.AbsPressure)
	putF32(b, 48, m.DiffPressure)
	putF32(b, 52, m.PressureAlt)
	putF32(b, 56, m.Temperature)
	putU32(b, 60, m.FieldsUpdated)
	return b
}

// EncodeHilGps packs sensors.HilGps into its MAVLink v2 wire layout.
func EncodeHilGps(m sensors.HilGps) []byte {
	b := make([]byte, 38)
	putU64(b, 0, m.TimeUsec)
	putI32(b, 8, m.Lat)
	putI32(b, 12, m.Lon)
	putI32(b, 16, m.Alt)
	putU16(b, 20, m.Eph)
	putU16(b, 22, m.Epv)
	putU16(b, 24, m.Vel)
	putI16(b, 26, m.Vn)
	putI16(b, 28, m.Ve)
	putI16(b, 30, m.Vd)
	putU16(b, 32, m.Cog)
	b[34] = m.FixType
	b[35] = m.SatellitesVisible
	putU16(b, 36, m.YawDeg) // extension field, appended per common.xml
	return b
}

// EncodeSystemTime packs sensors.SystemTime into its MAVLink v2 wire
// layout.
func EncodeSystemTime(m sensors.SystemTime) []byte {
	b := make([]byte, 12)
	putU64(b, 0, m.TimeUnixUsec)
	putU32(b, 8, m.TimeBootMs)
	return b
}

// EncodeCommandAck packs a COMMAND_ACK for the given command and result.
func EncodeCommandAck(command uint16, result uint8) []byte {
	b := make([]byte, 3)
	putU16(b, 0, command)
	b[2] = result
	return b
}

// HilActuatorControls is the decoded inbound HIL_ACTUATOR_CONTROLS
// payload: a 16-channel normalized control vector plus a mode flags byte.
type HilActuatorControls struct {
	TimeUsec uint64
	Controls [16]float32
	Mode     uint8
	Flags    uint64
}

// DecodeHilActuatorControls unpacks the wire payload. Field order follows
// mavgen's decreasing-size-with-stable-ties layout rule applied to the
// XML declaration order (time_usec, controls, mode, flags): the two
// uint64 fields sort together first, giving time_usec@0, flags@8,
// controls[16]@16, mode@80.
func DecodeHilActuatorControls(payload []byte) HilActuatorControls {
	var m HilActuatorControls
	m.TimeUsec = getU64(payload, 0)
	m.Flags = getU64(payload, 8)
	for i := 0; i < 16; i++ {
		m.Controls[i] = getF32(payload, 16+i*4)
	}
	m.Mode = payload[80]
	return m
}

// CommandLong is the decoded inbound COMMAND_LONG payload.
type CommandLong struct {
	Param1, Param2, Param3, Param4 float32
	Param5, Param6, Param7         float32
	Command                        uint16
	TargetSystem, TargetComponent  uint8
	Confirmation                   uint8
}

// DecodeCommandLong unpacks the wire payload.
func DecodeCommandLong(payload []byte) CommandLong {
	var m CommandLong
	m.Param1 = getF32(payload, 0)
	m.Param2 = getF32(payload, 4)
	m.Param3 = getF32(payload, 8)
	m.Param4 = getF32(payload, 12)
	m.Param5 = getF32(payload, 16)
	m.Param6 = getF32(payload, 20)
	m.Param7 = getF32(payload, 24)
	m.Command = getU16(payload, 28)
	m.TargetSystem = payload[30]
	m.TargetComponent = payload[31]
	m.Confirmation = payload[32]
	return m
}

// Heartbeat is the decoded inbound HEARTBEAT payload, trimmed to the
// fields this simulator reads.
type Heartbeat struct {
	CustomMode uint32
	Type       uint8
	Autopilot  uint8
	BaseMode   uint8
	SystemStatus uint8
}

// DecodeHeartbeat unpacks the wire payload.
func DecodeHeartbeat(payload []byte) Heartbeat {
	var m Heartbeat
	m.CustomMode = getU32(payload, 0)
	m.Type = payload[4]
	m.Autopilot = payload[5]
	m.BaseMode = payload[6]
	m.SystemStatus = payload[7]
	return m
}
