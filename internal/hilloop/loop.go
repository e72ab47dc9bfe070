// Package hilloop implements the HIL loop controller: inbound command
// dispatch, dynamics advance, outbound telemetry cadence and the lockstep
// gate that synchronizes simulated time with the autopilot.
package hilloop

import (
	"github.com/sirupsen/logrus"

	"github.com/arobi/drone-hil-sim/internal/clock"
	"github.com/arobi/drone-hil-sim/internal/dynamics"
	"github.com/arobi/drone-hil-sim/internal/environment"
	"github.com/arobi/drone-hil-sim/internal/mavlink"
	"github.com/arobi/drone-hil-sim/internal/metrics"
	"github.com/arobi/drone-hil-sim/internal/sensors"
)

// lockstepBootstrapWindow is the number of ticks telemetry publishes
// unconditionally before the autopilot has sent its first
// HIL_ACTUATOR_CONTROLS, preventing a permanent stall if it never
// replies.
const lockstepBootstrapWindow = 300

// systemTimeCadenceTicks is how often SYSTEM_TIME is emitted: every
// 1000th tick.
const systemTimeCadenceTicks = 1000

// Controllers groups the three actuator controllers the inbound dispatch
// writes into; the EOM samples the same instances.
type Controllers struct {
	VTOLProps *dynamics.Controller // 4-wide
	Ailerons  *dynamics.Controller // 2-wide
	FixedWing *dynamics.Controller // 1-wide
}

// Loop is the HIL loop controller described by the spec's component
// design: it owns no dynamics state itself, only the inbound dispatch and
// outbound cadence bookkeeping, operating on a Drone-supplied EOM,
// encoder, controllers, relay, clock and environment.
type Loop struct {
	log *logrus.Logger

	eom      *dynamics.EOM
	integ    *dynamics.Integrator
	ground   *dynamics.GroundCorrector
	encoder  *sensors.Encoder
	ctrls    Controllers
	relay    mavlink.Relay
	clock    clock.Clock
	env      environment.Provider
	wallTime func() uint64

	queue   *mavlink.Queue
	metrics *metrics.Metrics // nil disables metrics recording

	armed                               bool
	paused                              bool
	shouldReplyLockstep                 bool
	hilActuatorControlsMsgN             int
	sysTimeThrottleCounter              int
	lastAutopilotTelemetryUs            uint64
	hilStateQuaternionMessageFrequencyUs uint64

	simTimeUs uint64
	x         dynamics.State
}

// Config bundles the construction-time wiring a Loop needs.
type Config struct {
	EOM      *dynamics.EOM
	Integ    *dynamics.Integrator
	Ground   *dynamics.GroundCorrector
	Encoder  *sensors.Encoder
	Ctrls    Controllers
	Relay    mavlink.Relay
	Clock    clock.Clock
	Env      environment.Provider
	WallTime func() uint64 // wall-clock microseconds since epoch, for SYSTEM_TIME
	InitialX dynamics.State
	Metrics  *metrics.Metrics // optional
}

// New builds a Loop and registers it as the relay's inbound message
// handler — the drone's "registers itself as a handler" lifecycle step,
// performed here rather than by the caller so the handler closure always
// captures a fully constructed Loop.
func New(cfg Config, queue *mavlink.Queue, log *logrus.Logger) *Loop {
	l := &Loop{
		log:      log,
		eom:      cfg.EOM,
		integ:    cfg.Integ,
		ground:   cfg.Ground,
		encoder:  cfg.Encoder,
		ctrls:    cfg.Ctrls,
		relay:    cfg.Relay,
		clock:    cfg.Clock,
		env:      cfg.Env,
		wallTime: cfg.WallTime,
		queue:    queue,
		metrics:  cfg.Metrics,
		hilStateQuaternionMessageFrequencyUs: 50000, // 20 Hz default
		x: cfg.InitialX,
	}
	cfg.Relay.AddMessageHandler(func(f *mavlink.Frame) {
		queue.Push(f)
	})
	return l
}

// Update runs one tick: drain inbound, advance dynamics, correct ground,
// gate on lockstep, publish outbound telemetry. dtUs is the tick's
// duration in microseconds.
func (l *Loop) Update(dtUs uint64) {
	if l.metrics != nil {
		l.metrics.Ticks.Inc()
	}

	frames := l.drainInbound()
	for _, f := range frames {
		l.dispatch(f)
	}
	l.hilActuatorControlsMsgN++

	if l.paused {
		return
	}

	dt := float64(dtUs) / 1e6
	t := float64(l.simTimeUs) / 1e6

	// Sampled once per tick, not once per RK4 sub-stage: see EOM.SampleControls.
	l.eom.SampleControls(dt)
	newX, dx := l.integ.Step(t, l.x, l.eom.Evaluate)
	l.x = newX
	l.simTimeUs += dtUs

	ve := dynamics.RotateVec(dynamics.Body2Earth(l.x), [3]float64{dx[dynamics.PosN], dx[dynamics.PosE], dx[dynamics.PosD]})
	ae := dynamics.RotateVec(dynamics.Body2Earth(l.x), [3]float64{dx[dynamics.VelX], dx[dynamics.VelY], dx[dynamics.VelZ]})
	correctedX, correctedDx, clamped := l.ground.Correct(l.x, dx, ve, ae, dt)
	l.x = correctedX
	dx = correctedDx
	if clamped {
		l.eom.SetAirborne(false)
	}
	if l.metrics != nil {
		if l.eom.Airborne() {
			l.metrics.Airborne.Set(1)
		} else {
			l.metrics.Airborne.Set(0)
		}
	}

	if !l.shouldReplyLockstep && l.hilActuatorControlsMsgN > lockstepBootstrapWindow {
		if l.metrics != nil {
			l.metrics.LockstepStalls.Inc()
		}
		return
	}

	l.clock.UnlockTime()

	l.sysTimeThrottleCounter++
	if l.sysTimeThrottleCounter%systemTimeCadenceTicks == 0 {
		l.publishSystemTime()
	}

	l.publishGps()
	l.publishSensor(dx)
	l.shouldReplyLockstep = false

	if l.simTimeUs-l.lastAutopilotTelemetryUs > l.hilStateQuaternionMessageFrequencyUs {
		l.publishStateQuaternion(dx)
		l.lastAutopilotTelemetryUs = l.simTimeUs
	}
}

func (l *Loop) drainInbound() []*mavlink.Frame {
	return l.queue.DrainInto(nil)
}

func (l *Loop) dispatch(f *mavlink.Frame) {
	switch f.MessageID {
	case mavlink.MsgHeartbeat:
		l.log.WithField("component", "hilloop").Debug("mavlink: heartbeat received")

	case mavlink.MsgHilActuatorControls:
		m := mavlink.DecodeHilActuatorControls(f.Payload)
		l.armed = m.Mode&mavlink.ModeFlagSafetyArmed != 0

		controls := m.Controls
		l.ctrls.VTOLProps.SetControl([]float64{
			float64(controls[0]), float64(controls[1]), float64(controls[2]), float64(controls[3]),
		})
		l.ctrls.Ailerons.SetControl([]float64{float64(controls[4]), float64(controls[5])})
		l.ctrls.FixedWing.SetControl([]float64{float64(controls[8])})

		l.shouldReplyLockstep = true

	case mavlink.MsgCommandLong:
		m := mavlink.DecodeCommandLong(f.Payload)
		if m.Command == mavlink.CmdSetMessageInterval {
			if m.Param2 > 0 {
				l.hilStateQuaternionMessageFrequencyUs = uint64(m.Param2)
			}
		}
		l.publishCommandAck(m.Command)

	default:
		l.log.WithField("msg_id", f.MessageID).Debug("mavlink: unknown inbound message, ignoring")
	}
}

func (l *Loop) publish(messageID uint32, payload []byte) {
	if !l.relay.ConnectionOpen() {
		return
	}
	if err := l.relay.EnqueueMessage(mavlink.OutboundFrame{MessageID: messageID, Payload: payload}); err != nil {
		l.log.WithError(err).Debug("mavlink: publish failed, skipping")
	}
}

func (l *Loop) publishSystemTime() {
	m := l.encoder.EncodeSystemTime(l.wallTime(), l.simTimeUs)
	l.publish(mavlink.MsgSystemTime, mavlink.EncodeSystemTime(m))
}

func (l *Loop) publishGps() {
	m := l.encoder.EncodeGPS(l.x, l.simTimeUs)
	l.publish(mavlink.MsgHilGps, mavlink.EncodeHilGps(m))
	if l.metrics != nil {
		l.metrics.GpsPublishes.Inc()
	}
}

func (l *Loop) publishSensor(dx dynamics.Derivative) {
	m := l.encoder.EncodeSensor(l.x, dx, l.simTimeUs, l.env.TemperatureC())
	l.publish(mavlink.MsgHilSensor, mavlink.EncodeHilSensor(m))
	if l.metrics != nil {
		l.metrics.SensorPublishes.Inc()
	}
}

func (l *Loop) publishStateQuaternion(dx dynamics.Derivative) {
	m := l.encoder.EncodeStateQuaternion(l.x, dx, l.simTimeUs, l.env.Wind())
	l.publish(mavlink.MsgHilStateQuaternion, mavlink.EncodeHilStateQuaternion(m))
	if l.metrics != nil {
		l.metrics.StateQuatPublishes.Inc()
	}
}

func (l *Loop) publishCommandAck(command uint16) {
	l.publish(mavlink.MsgCommandAck, mavlink.EncodeCommandAck(command, 0))
}

// State returns the current simulation state, for diagnostics (the admin
// HTTP surface and telemetry tap).
func (l *Loop) State() dynamics.State { return l.x }

// Armed reports the autopilot-commanded arm state.
func (l *Loop) Armed() bool { return l.armed }

// Airborne reports whether the ground-contact corrector currently has the
// vehicle clamped to the runway.
func (l *Loop) Airborne() bool { return l.eom.Airborne() }

// SimTimeUs returns the simulation clock, for diagnostics.
func (l *Loop) SimTimeUs() uint64 { return l.simTimeUs }

// Pause freezes dynamics advance; inbound dispatch still runs so the
// autopilot link stays alive.
func (l *Loop) Pause() { l.paused = true }

// Resume lifts a prior Pause.
func (l *Loop) Resume() { l.paused = false }

// Paused reports whether the loop is currently frozen.
func (l *Loop) Paused() bool { return l.paused }
