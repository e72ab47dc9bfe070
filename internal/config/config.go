// Package config loads the drone's physical and aerodynamic configuration
// from the stream-deserialized format described by the simulator's
// external-interface contract: whitespace-delimited primitive values and
// nested coefficient tables, in a fixed field order.
//
// No retrieved example repo carries a reader for this bespoke whitespace
// format (see DESIGN.md), so this package builds directly on bufio/text
// scanning rather than forcing an ill-fitting structured-config library
// (viper, yaml, toml) onto a format that is neither.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// AeroCoeffTable holds the linear stability-derivative coefficients the
// aerodynamic force/moment model samples. Values are dimensionless per
// standard aircraft stability-derivative convention.
type AeroCoeffTable struct {
	CL0, CLAlpha float64 // lift: base + alpha slope
	CD0, CDK     float64 // drag: base + induced-drag factor (CD = CD0 + CDK*CL^2)
	CYBeta       float64 // side force vs sideslip
	ClBeta, ClP  float64 // roll moment vs sideslip, roll rate
	CmAlpha, CmQ float64 // pitch moment vs alpha, pitch rate
	CnBeta, CnR  float64 // yaw moment vs sideslip, yaw rate

	ClDeltaA float64 // roll moment vs differential aileron deflection
	CmDeltaE float64 // pitch moment vs symmetric aileron (elevator) deflection
}

// MotorConfig parameterizes the optional first-order motor lag applied to
// thrust setpoints. A zero-value MotorConfig (TimeConstant == 0) disables
// the lag: actuator controllers then pass setpoints straight through, per
// the spec's bare scalar-scaling description.
type MotorConfig struct {
	TimeConstant float64 // s, first-order lag tau
	MaxThrustN   float64 // N, per-rotor/per-surface saturation
}

// DroneConfig is the immutable, parsed physical description of the
// airframe. Every nested table is copied by value so a caller mutating its
// own slices after Load cannot reach back into a loaded config.
type DroneConfig struct {
	BProp float64 // propeller reference span/diameter, m
	C     float64 // mean aerodynamic chord, m
	BAero float64 // aerodynamic reference span, m
	S     float64 // wing reference area, m^2

	D [3]float64 // fixed-wing thrust lever arm from CG, m (body frame)
	L [4]float64 // quad-rotor lever arm lengths, m

	Aero AeroCoeffTable

	J    [3][3]float64 // inertia tensor, kg*m^2 (symmetric positive definite)
	Mass float64       // kg

	Motor *MotorConfig // nil disables motor lag
}

// Load reads a DroneConfig from the named stream file. The format is a
// fixed sequence of whitespace-delimited floats:
//
//	b_prop c b_aero S
//	d[0] d[1] d[2]
//	l[0] l[1] l[2] l[3]
//	CL0 CLAlpha CD0 CDK CYBeta ClBeta ClP CmAlpha CmQ CnBeta CnR ClDeltaA CmDeltaE
//	J[0][0] J[0][1] J[0][2] J[1][0] J[1][1] J[1][2] J[2][0] J[2][1] J[2][2]
//	mass
//	[motor_time_constant motor_max_thrust]   (optional trailing line)
//
// A malformed or short config is a fatal startup error, per the error
// handling design: this simulator does not run a hot loop against a config
// it could not fully parse.
func Load(path string) (*DroneConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (*DroneConfig, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	next := func() (float64, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return 0, fmt.Errorf("config: read token: %w", err)
			}
			return 0, io.ErrUnexpectedEOF
		}
		var v float64
		if _, err := fmt.Sscanf(sc.Text(), "%g", &v); err != nil {
			return 0, fmt.Errorf("config: parse token %q: %w", sc.Text(), err)
		}
		return v, nil
	}

	var cfg DroneConfig
	var err error

	if cfg.BProp, err = next(); err != nil {
		return nil, err
	}
	if cfg.C, err = next(); err != nil {
		return nil, err
	}
	if cfg.BAero, err = next(); err != nil {
		return nil, err
	}
	if cfg.S, err = next(); err != nil {
		return nil, err
	}
	for i := range cfg.D {
		if cfg.D[i], err = next(); err != nil {
			return nil, err
		}
	}
	for i := range cfg.L {
		if cfg.L[i], err = next(); err != nil {
			return nil, err
		}
	}

	aero := []*float64{
		&cfg.Aero.CL0, &cfg.Aero.CLAlpha,
		&cfg.Aero.CD0, &cfg.Aero.CDK,
		&cfg.Aero.CYBeta,
		&cfg.Aero.ClBeta, &cfg.Aero.ClP,
		&cfg.Aero.CmAlpha, &cfg.Aero.CmQ,
		&cfg.Aero.CnBeta, &cfg.Aero.CnR,
		&cfg.Aero.ClDeltaA, &cfg.Aero.CmDeltaE,
	}
	for _, p := range aero {
		if *p, err = next(); err != nil {
			return nil, err
		}
	}

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if cfg.J[i][j], err = next(); err != nil {
				return nil, err
			}
		}
	}

	if cfg.Mass, err = next(); err != nil {
		return nil, err
	}
	if cfg.Mass <= 0 {
		return nil, fmt.Errorf("config: mass must be positive, got %g", cfg.Mass)
	}

	tau, errTau := next()
	if errTau == nil {
		maxT, errMax := next()
		if errMax != nil {
			return nil, errMax
		}
		cfg.Motor = &MotorConfig{TimeConstant: tau, MaxThrustN: maxT}
	}

	return &cfg, nil
}
