package dynamics

import (
	"github.com/arobi/drone-hil-sim/internal/config"
	"github.com/arobi/drone-hil-sim/internal/propulsion"
)

// Controller is a stateful holder of the most recently commanded
// normalized actuator vector. set_control replaces it atomically from the
// inbound-message dispatch path; control(dt) is sampled once per
// macro-step by EOM.SampleControls, never once per RK4 sub-stage.
type Controller struct {
	width    int
	setpoint []float64
	scale    float64
	lag      []*propulsion.Model // nil entries mean passthrough, one per channel
}

// NewController builds a controller of the given channel width, scaling
// each channel's normalized [-1, 1] command by scale before returning it
// from Control. If motor is non-nil, every channel gets its own
// first-order lag model (each rotor/surface lags independently).
func NewController(width int, scale float64, motor *config.MotorConfig) *Controller {
	c := &Controller{width: width, setpoint: make([]float64, width), scale: scale}
	if motor != nil {
		c.lag = make([]*propulsion.Model, width)
		for i := range c.lag {
			c.lag[i] = propulsion.NewModel(motor.TimeConstant)
		}
	}
	return c
}

// SetControl atomically replaces the commanded setpoint vector. v shorter
// than the controller's width leaves trailing channels unchanged; v
// longer is truncated.
func (c *Controller) SetControl(v []float64) {
	n := len(v)
	if n > c.width {
		n = c.width
	}
	copy(c.setpoint, v[:n])
}

// Control samples the controller, applying configured scaling and, when a
// motor lag model is present, first-order lag, advancing dt seconds of
// simulated time.
func (c *Controller) Control(dt float64) []float64 {
	out := make([]float64, c.width)
	for i := 0; i < c.width; i++ {
		if c.lag != nil {
			out[i] = c.lag[i].Advance(c.setpoint[i], dt) * c.scale
		} else {
			out[i] = c.setpoint[i] * c.scale
		}
	}
	return out
}

// Width reports the controller's channel count.
func (c *Controller) Width() int { return c.width }
