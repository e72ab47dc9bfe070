package hilloop

import (
	"math"
	"testing"

	"github.com/arobi/drone-hil-sim/internal/config"
	"github.com/arobi/drone-hil-sim/internal/dynamics"
	"github.com/arobi/drone-hil-sim/internal/environment"
	"github.com/arobi/drone-hil-sim/internal/mavlink"
	"github.com/arobi/drone-hil-sim/internal/sensors"
	"github.com/sirupsen/logrus"
)

// fakeClock is a manual Clock for deterministic lockstep tests: it never
// advances on its own and just counts UnlockTime calls.
type fakeClock struct {
	unlocks int
}

func (c *fakeClock) CurrentTimeUs() uint64 { return 0 }
func (c *fakeClock) UnlockTime()           { c.unlocks++ }

func newTestLoop(t *testing.T) (*Loop, *mavlink.MemoryRelay, *fakeClock) {
	t.Helper()

	weight := dynamics.NewWeight(1.0)
	aero := dynamics.NewAero(config.AeroCoeffTable{}, 2.0, 0.5, 1.0)
	fw := dynamics.NewFixedWingThrust(0, [3]float64{})
	quad := dynamics.NewQuadThrust(10, [4]float64{0.2, 0.2, 0.2, 0.2})
	j := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	fwCtrl := dynamics.NewController(1, 1.0, nil)
	ailCtrl := dynamics.NewController(2, 1.0, nil)
	quadCtrl := dynamics.NewController(4, 1.0, nil)

	eom := dynamics.NewEOM(weight, aero, fw, quad, j, fwCtrl, ailCtrl, quadCtrl)
	integ := dynamics.NewIntegrator(0.01)
	ground := dynamics.NewGroundCorrector(0, 1e-4)
	encoder := sensors.NewEncoder()

	relay := mavlink.NewMemoryRelay()
	clk := &fakeClock{}
	env := environment.NewFixed([3]float64{}, 15.0)
	queue := mavlink.NewQueue()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel) // silence test output

	l := New(Config{
		EOM:      eom,
		Integ:    integ,
		Ground:   ground,
		Encoder:  encoder,
		Ctrls:    Controllers{VTOLProps: quadCtrl, Ailerons: ailCtrl, FixedWing: fwCtrl},
		Relay:    relay,
		Clock:    clk,
		Env:      env,
		WallTime: func() uint64 { return 0 },
	}, queue, log)

	return l, relay, clk
}

func hilActuatorControlsFrame() *mavlink.Frame {
	payload := make([]byte, 81)
	return &mavlink.Frame{MessageID: mavlink.MsgHilActuatorControls, Payload: payload}
}

func TestLoopStallsTelemetryUntilLockstepBootstrapWindow(t *testing.T) {
	l, relay, clk := newTestLoop(t)

	// before the autopilot ever replies, the bootstrap window lets
	// telemetry publish unconditionally for lockstepBootstrapWindow ticks.
	for i := 0; i < lockstepBootstrapWindow; i++ {
		l.Update(1000)
	}
	if clk.unlocks != lockstepBootstrapWindow {
		t.Errorf("unlocks during bootstrap window = %d, want %d", clk.unlocks, lockstepBootstrapWindow)
	}

	// one more tick past the window with still no reply: stalls.
	l.Update(1000)
	if clk.unlocks != lockstepBootstrapWindow {
		t.Errorf("expected lockstep stall past the bootstrap window, unlocks = %d, want unchanged at %d", clk.unlocks, lockstepBootstrapWindow)
	}

	if len(relay.Sent()) == 0 {
		t.Errorf("expected telemetry to have been sent during the bootstrap window")
	}
}

func TestLoopResumesLockstepOnActuatorControlsReply(t *testing.T) {
	l, _, clk := newTestLoop(t)

	for i := 0; i < lockstepBootstrapWindow+5; i++ {
		l.Update(1000)
	}
	stalledUnlocks := clk.unlocks

	l.queue.Push(hilActuatorControlsFrame())
	l.Update(1000)

	if clk.unlocks != stalledUnlocks+1 {
		t.Errorf("expected exactly one additional unlock after the autopilot replied, got %d -> %d", stalledUnlocks, clk.unlocks)
	}
}

func TestLoopDispatchArmsOnModeFlag(t *testing.T) {
	l, _, _ := newTestLoop(t)

	f := hilActuatorControlsFrame()
	f.Payload[80] = mavlink.ModeFlagSafetyArmed
	l.queue.Push(f)
	l.Update(1000)

	if !l.Armed() {
		t.Errorf("expected Armed() true after a HIL_ACTUATOR_CONTROLS with the safety-armed mode flag")
	}
}

func TestLoopCommandLongSetMessageIntervalAcksAndAdjustsFrequency(t *testing.T) {
	l, relay, _ := newTestLoop(t)

	payload := make([]byte, 33)
	putU16CmdLong(payload, mavlink.CmdSetMessageInterval)
	putF32CmdLong(payload, 4, 20000) // 20ms interval

	l.queue.Push(&mavlink.Frame{MessageID: mavlink.MsgCommandLong, Payload: payload})
	l.Update(1000)

	if l.hilStateQuaternionMessageFrequencyUs != 20000 {
		t.Errorf("hilStateQuaternionMessageFrequencyUs = %v, want 20000", l.hilStateQuaternionMessageFrequencyUs)
	}

	foundAck := false
	for _, f := range relay.Sent() {
		if f.MessageID == mavlink.MsgCommandAck {
			foundAck = true
		}
	}
	if !foundAck {
		t.Errorf("expected a COMMAND_ACK to have been sent")
	}
}

func TestLoopPauseFreezesDynamicsButKeepsDispatching(t *testing.T) {
	l, _, _ := newTestLoop(t)
	l.Pause()
	if !l.Paused() {
		t.Fatalf("expected Paused() true after Pause()")
	}

	before := l.SimTimeUs()
	l.Update(1000)
	if l.SimTimeUs() != before {
		t.Errorf("SimTimeUs advanced while paused: %v -> %v", before, l.SimTimeUs())
	}

	f := hilActuatorControlsFrame()
	f.Payload[80] = mavlink.ModeFlagSafetyArmed
	l.queue.Push(f)
	l.Update(1000)
	if !l.Armed() {
		t.Errorf("expected dispatch to still run while paused")
	}

	l.Resume()
	if l.Paused() {
		t.Errorf("expected Paused() false after Resume()")
	}
	l.Update(1000)
	if l.SimTimeUs() == before {
		t.Errorf("expected SimTimeUs to advance again after Resume()")
	}
}

func putU16CmdLong(b []byte, v uint16) {
	b[28] = byte(v)
	b[29] = byte(v >> 8)
}

func putF32CmdLong(b []byte, off int, v float32) {
	bits := math.Float32bits(v)
	b[off] = byte(bits)
	b[off+1] = byte(bits >> 8)
	b[off+2] = byte(bits >> 16)
	b[off+3] = byte(bits >> 24)
}
