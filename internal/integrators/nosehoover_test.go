package integrators

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mdsim/internal/systems"
)

func TestNoseHooverSubsystemHeatBathEngages(t *testing.T) {
	c := systems.ArgonCluster(10)
	c.SetVelocitiesToTemperature(300, 4)

	nh := NewNoseHooverIntegrator(0.001)
	err := nh.AddSubsystemThermostat([]int{0, 1, 2, 3, 4}, nil, 200, 1, 200, 1, 3, 3, 3)
	if err != nil {
		t.Fatalf("configuration rejected: %v", err)
	}
	if got := nh.HeatBathEnergy(); got != 0 {
		t.Fatalf("heat bath energy %g before binding, want 0", got)
	}
	if err := nh.Step(c, 5); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if got := nh.HeatBathEnergy(); got == 0 {
		t.Fatal("heat bath never engaged")
	}
	chains := nh.Chains()
	if len(chains) != 1 {
		t.Fatalf("got %d chains, want 1", len(chains))
	}
	// Five particles not spanning the system: no center-of-mass
	// correction, no constraints.
	if ndf := chains[0].DegreesOfFreedom(); ndf != 15 {
		t.Fatalf("chain ndf %d, want 15", ndf)
	}
}

func TestNoseHooverLeavesUncoupledParticlesAlone(t *testing.T) {
	c := systems.IdealGas(10)
	c.SetVelocitiesToTemperature(300, 5)
	before := append([]r3.Vec(nil), c.Vel...)

	nh := NewNoseHooverIntegrator(0.001)
	if err := nh.AddSubsystemThermostat([]int{0, 1, 2}, nil, 100, 2, 100, 2, 3, 3, 3); err != nil {
		t.Fatal(err)
	}
	if err := nh.Step(c, 10); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	// No forces act, so only the thermostated subset may change.
	for i := 3; i < 10; i++ {
		if c.Vel[i] != before[i] {
			t.Errorf("uncoupled particle %d velocity changed", i)
		}
	}
	changed := false
	for i := 0; i < 3; i++ {
		if c.Vel[i] != before[i] {
			changed = true
		}
	}
	if !changed {
		t.Error("thermostated subset untouched")
	}
}

func TestNoseHooverHoldsTargetTemperature(t *testing.T) {
	const target = 300.0
	c := systems.HarmonicLattice(27, 1000)
	c.SetVelocitiesToTemperature(target, 6)

	nh := NewNoseHooverIntegrator(0.002)
	if err := nh.AddThermostat(target, 5); err != nil {
		t.Fatal(err)
	}
	if err := nh.Step(c, 500); err != nil {
		t.Fatalf("equilibration failed: %v", err)
	}
	sum := 0.0
	const samples = 400
	for s := 0; s < samples; s++ {
		if err := nh.Step(c, 10); err != nil {
			t.Fatalf("step failed: %v", err)
		}
		sum += c.Temperature()
	}
	mean := sum / samples
	if math.Abs(mean-target)/target > 0.2 {
		t.Fatalf("mean temperature %.1f K, want %.0f K within 20%%", mean, target)
	}
	if !c.IsFinite() {
		t.Fatal("state diverged")
	}
}

func TestNoseHooverConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		add     func(nh *NoseHooverIntegrator) error
		wantErr error
	}{
		{
			"negative temperature",
			func(nh *NoseHooverIntegrator) error { return nh.AddThermostat(-10, 1) },
			ErrInvalidTemperature,
		},
		{
			"zero frequency",
			func(nh *NoseHooverIntegrator) error { return nh.AddThermostat(300, 0) },
			ErrInvalidFrequency,
		},
		{
			"empty subset",
			func(nh *NoseHooverIntegrator) error {
				return nh.AddSubsystemThermostat(nil, nil, 300, 1, 1, 10, 3, 3, 3)
			},
			ErrEmptySubset,
		},
		{
			"zero chain length",
			func(nh *NoseHooverIntegrator) error {
				return nh.AddSubsystemThermostat([]int{0}, nil, 300, 1, 1, 10, 0, 3, 3)
			},
			ErrInvalidChainLength,
		},
		{
			"zero loop count",
			func(nh *NoseHooverIntegrator) error {
				return nh.AddSubsystemThermostat([]int{0}, nil, 300, 1, 1, 10, 3, 0, 3)
			},
			ErrInvalidLoopCount,
		},
		{
			"bad splitting order",
			func(nh *NoseHooverIntegrator) error {
				return nh.AddSubsystemThermostat([]int{0}, nil, 300, 1, 1, 10, 3, 3, 2)
			},
			ErrInvalidYoshidaSuzuki,
		},
		{
			"pairs with zero relative temperature",
			func(nh *NoseHooverIntegrator) error {
				return nh.AddSubsystemThermostat(nil, [][2]int{{0, 1}}, 300, 1, 0, 10, 3, 3, 3)
			},
			ErrInvalidTemperature,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nh := NewNoseHooverIntegrator(0.001)
			if err := tt.add(nh); !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNoseHooverWithoutThermostatIsPlainVerlet(t *testing.T) {
	a := systems.HarmonicLattice(8, 1000)
	b := systems.HarmonicLattice(8, 1000)
	a.SetVelocitiesToTemperature(300, 7)
	b.SetVelocitiesToTemperature(300, 7)

	nh := NewNoseHooverIntegrator(0.002)
	vv := NewMTSIntegrator(0.002, Schedule{{0, 1}})
	if err := nh.Step(a, 50); err != nil {
		t.Fatalf("bare integrator failed: %v", err)
	}
	if err := vv.Step(b, 50); err != nil {
		t.Fatalf("reference failed: %v", err)
	}
	for i := range a.Pos {
		if d := r3.Norm(r3.Sub(a.Pos[i], b.Pos[i])); d > 1e-10 {
			t.Fatalf("particle %d positions differ by %g", i, d)
		}
	}
}

func TestNoseHooverConstrainedDrift(t *testing.T) {
	c := systems.ConstrainedChain(8)
	if err := c.ApplyConstraints(1e-6); err != nil {
		t.Fatalf("initial projection failed: %v", err)
	}

	nh := NewNoseHooverIntegrator(0.001)
	if err := nh.AddThermostat(300, 2); err != nil {
		t.Fatal(err)
	}
	if err := nh.Step(c, 500); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	for _, con := range c.System().Constraints() {
		dist := r3.Norm(r3.Sub(c.Pos[con.J], c.Pos[con.I]))
		if rel := math.Abs(dist-con.Distance) / con.Distance; rel > 1e-4 {
			t.Errorf("constraint (%d,%d) violated: distance %.6f", con.I, con.J, dist)
		}
	}
}
