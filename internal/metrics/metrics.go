// Package metrics exposes the simulator's operational counters as
// Prometheus gauges/counters, grounded on the sibling repo's
// client_golang/promauto usage: constructor-built (no package-level
// global registry reach-through), wired into the admin HTTP surface by
// cmd/drone-hil.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every counter/gauge the HIL loop updates each tick.
type Metrics struct {
	Ticks            prometheus.Counter
	LockstepStalls   prometheus.Counter
	SensorPublishes  prometheus.Counter
	GpsPublishes     prometheus.Counter
	StateQuatPublishes prometheus.Counter
	Airborne         prometheus.Gauge
}

// New registers every metric against reg and returns the handle the
// simulation loop updates.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "drone_hil_ticks_total",
			Help: "Total number of simulation ticks processed.",
		}),
		LockstepStalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "drone_hil_lockstep_stalls_total",
			Help: "Ticks where the lockstep gate prevented telemetry publish.",
		}),
		SensorPublishes: factory.NewCounter(prometheus.CounterOpts{
			Name: "drone_hil_hil_sensor_published_total",
			Help: "Total HIL_SENSOR messages published.",
		}),
		GpsPublishes: factory.NewCounter(prometheus.CounterOpts{
			Name: "drone_hil_hil_gps_published_total",
			Help: "Total HIL_GPS messages published.",
		}),
		StateQuatPublishes: factory.NewCounter(prometheus.CounterOpts{
			Name: "drone_hil_hil_state_quaternion_published_total",
			Help: "Total HIL_STATE_QUATERNION messages published.",
		}),
		Airborne: factory.NewGauge(prometheus.GaugeOpts{
			Name: "drone_hil_airborne",
			Help: "1 when the vehicle is airborne, 0 when ground-clamped.",
		}),
	}
}
