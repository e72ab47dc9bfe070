package config

import (
	"strings"
	"testing"
)

const baseStream = `1.0 0.5 2.0 0.3
0 0 0.1
0.2 0.2 0.2 0.2
0.3 5.0 0.02 0.05 -0.1 -0.05 -0.4 -0.6 -8.0 0.08 -0.1 0.1 -1.2
1 0 0 0 1 0 0 0 1
2.5
`

func TestParseFixedOrderStream(t *testing.T) {
	cfg, err := parse(strings.NewReader(baseStream))
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}
	if cfg.BProp != 1.0 || cfg.C != 0.5 || cfg.BAero != 2.0 || cfg.S != 0.3 {
		t.Errorf("leading scalars = %+v, want (1.0, 0.5, 2.0, 0.3)", cfg)
	}
	if cfg.D != ([3]float64{0, 0, 0.1}) {
		t.Errorf("D = %v, want (0,0,0.1)", cfg.D)
	}
	if cfg.L != ([4]float64{0.2, 0.2, 0.2, 0.2}) {
		t.Errorf("L = %v, want all 0.2", cfg.L)
	}
	if cfg.Aero.ClDeltaA != 0.1 || cfg.Aero.CmDeltaE != -1.2 {
		t.Errorf("aileron coeffs = (%v, %v), want (0.1, -1.2)", cfg.Aero.ClDeltaA, cfg.Aero.CmDeltaE)
	}
	if cfg.J[0][0] != 1 || cfg.J[1][1] != 1 || cfg.J[2][2] != 1 || cfg.J[0][1] != 0 {
		t.Errorf("J = %v, want identity", cfg.J)
	}
	if cfg.Mass != 2.5 {
		t.Errorf("Mass = %v, want 2.5", cfg.Mass)
	}
	if cfg.Motor != nil {
		t.Errorf("Motor = %+v, want nil without a trailing motor line", cfg.Motor)
	}
}

func TestParseWithOptionalMotorLag(t *testing.T) {
	stream := baseStream + "0.15 40\n"
	cfg, err := parse(strings.NewReader(stream))
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}
	if cfg.Motor == nil {
		t.Fatalf("expected a parsed MotorConfig")
	}
	if cfg.Motor.TimeConstant != 0.15 || cfg.Motor.MaxThrustN != 40 {
		t.Errorf("Motor = %+v, want (0.15, 40)", cfg.Motor)
	}
}

func TestParseRejectsNonPositiveMass(t *testing.T) {
	stream := `1.0 0.5 2.0 0.3
0 0 0.1
0.2 0.2 0.2 0.2
0 0 0 0 0 0 0 0 0 0 0 0 0
1 0 0 0 1 0 0 0 1
0
`
	_, err := parse(strings.NewReader(stream))
	if err == nil {
		t.Fatalf("expected an error for zero mass, got nil")
	}
}

func TestParseRejectsTruncatedStream(t *testing.T) {
	_, err := parse(strings.NewReader("1.0 0.5 2.0"))
	if err == nil {
		t.Fatalf("expected an error for a truncated stream, got nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/to/airframe.cfg")
	if err == nil {
		t.Fatalf("expected an error opening a missing file, got nil")
	}
}
