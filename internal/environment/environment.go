// Package environment defines the EnvironmentProvider collaborator: wind
// and temperature, sampled by the sensor encoder and the aero force
// model. This package supplies a fixed-value implementation — the spec's
// non-goals exclude weather modeling beyond these placeholders.
package environment

// Provider is the collaborator the core consumes for ambient conditions.
type Provider interface {
	Wind() [3]float64 // m/s, NED
	TemperatureC() float64
}

// Fixed is a Provider returning constant values, sufficient for a HIL
// session against a single fixed operating area.
type Fixed struct {
	wind        [3]float64
	temperature float64
}

// NewFixed builds a Provider with a constant wind vector and temperature.
func NewFixed(wind [3]float64, temperatureC float64) *Fixed {
	return &Fixed{wind: wind, temperature: temperatureC}
}

func (f *Fixed) Wind() [3]float64      { return f.wind }
func (f *Fixed) TemperatureC() float64 { return f.temperature }
