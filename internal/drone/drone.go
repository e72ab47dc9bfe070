// Package drone is the composition root: Drone owns the equations of
// motion, the sensor encoder, the HIL loop controller and the actuator
// controllers as separate objects wired at construction — no inheritance,
// no global state, matching the decomposition called for once the
// source's MAVLinkSystem/DynamicObject/DroneStateEncoder mixin hierarchy
// is rejected.
package drone

import (
	"github.com/sirupsen/logrus"

	"github.com/arobi/drone-hil-sim/internal/clock"
	"github.com/arobi/drone-hil-sim/internal/config"
	"github.com/arobi/drone-hil-sim/internal/dynamics"
	"github.com/arobi/drone-hil-sim/internal/environment"
	"github.com/arobi/drone-hil-sim/internal/hilloop"
	"github.com/arobi/drone-hil-sim/internal/mavlink"
	"github.com/arobi/drone-hil-sim/internal/metrics"
	"github.com/arobi/drone-hil-sim/internal/sensors"
)

// fixedStepSeconds is the ODE stepper's configured macro-step, order of
// 10ms in the source.
const fixedStepSeconds = 0.01

// groundPlane is the flat runway's NED-down coordinate; the vehicle
// starts and rests on it.
const groundPlane = 0.0

// Drone composes an EOM, an encoder, a loop controller and the actuator
// controllers around an external message relay. Destroyed with the relay
// still alive; it leaves no outstanding background tasks of its own (the
// relay, if any, owns its own I/O goroutine).
type Drone struct {
	loop *hilloop.Loop
}

// New constructs a Drone from a parsed config, a message relay, a clock, an
// environment provider and a logger, and registers it as a handler on the
// relay.
func New(cfg *config.DroneConfig, relay mavlink.Relay, clk clock.Clock, env environment.Provider, wallTimeUs func() uint64, log *logrus.Logger, met *metrics.Metrics) *Drone {
	weight := dynamics.NewWeight(cfg.Mass)
	aero := dynamics.NewAero(cfg.Aero, cfg.BAero, cfg.C, cfg.S)
	fwThrust := dynamics.NewFixedWingThrust(fixedWingMaxThrustN(cfg), cfg.D)
	quad := dynamics.NewQuadThrust(quadMaxThrustN(cfg), cfg.L)

	fixedWingCtrl := dynamics.NewController(1, 1.0, cfg.Motor)
	aileronsCtrl := dynamics.NewController(2, 1.0, nil)
	vtolCtrl := dynamics.NewController(4, 1.0, cfg.Motor)

	eom := dynamics.NewEOM(weight, aero, fwThrust, quad, cfg.J, fixedWingCtrl, aileronsCtrl, vtolCtrl)
	integ := dynamics.NewIntegrator(fixedStepSeconds)
	ground := dynamics.NewGroundCorrector(groundPlane, 1e-4)
	encoder := sensors.NewEncoder()
	queue := mavlink.NewQueue()

	var initial dynamics.State
	// Seeds a nonzero forward-body velocity to avoid a NaN in the aero
	// model's alpha/beta computation at zero airspeed; the underlying
	// singularity is not otherwise fixed (open question, preserved as
	// specified).
	initial[dynamics.VelX] = 28

	loopCfg := hilloop.Config{
		EOM: eom, Integ: integ, Ground: ground, Encoder: encoder,
		Ctrls: hilloop.Controllers{VTOLProps: vtolCtrl, Ailerons: aileronsCtrl, FixedWing: fixedWingCtrl},
		Relay: relay, Clock: clk, Env: env, WallTime: wallTimeUs,
		InitialX: initial, Metrics: met,
	}

	return &Drone{loop: hilloop.New(loopCfg, queue, log)}
}

// Update advances the drone by one tick of dtUs microseconds.
func (d *Drone) Update(dtUs uint64) {
	d.loop.Update(dtUs)
}

// State returns the current 12-vector state, for diagnostics.
func (d *Drone) State() dynamics.State { return d.loop.State() }

// Armed reports the autopilot-commanded arm state.
func (d *Drone) Armed() bool { return d.loop.Armed() }

// Airborne reports whether the vehicle is currently ground-clamped.
func (d *Drone) Airborne() bool { return d.loop.Airborne() }

// SimTimeUs returns the simulation clock, for diagnostics.
func (d *Drone) SimTimeUs() uint64 { return d.loop.SimTimeUs() }

// Pause freezes dynamics advance.
func (d *Drone) Pause() { d.loop.Pause() }

// Resume lifts a prior Pause.
func (d *Drone) Resume() { d.loop.Resume() }

// Paused reports whether the drone is currently frozen.
func (d *Drone) Paused() bool { return d.loop.Paused() }

func fixedWingMaxThrustN(cfg *config.DroneConfig) float64 {
	if cfg.Motor != nil && cfg.Motor.MaxThrustN > 0 {
		return cfg.Motor.MaxThrustN
	}
	return cfg.Mass * gravityFallback
}

func quadMaxThrustN(cfg *config.DroneConfig) float64 {
	if cfg.Motor != nil && cfg.Motor.MaxThrustN > 0 {
		return cfg.Motor.MaxThrustN
	}
	return cfg.Mass * gravityFallback
}

const gravityFallback = 9.81
