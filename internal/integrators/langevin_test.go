package integrators

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mdsim/internal/mdsys"
	"github.com/san-kum/mdsim/internal/systems"
)

// With the target temperature at zero the stochastic term vanishes and
// the velocity must decay as exp(-friction·time), however the macro
// step is subdivided.
func TestLangevinFrictionDecayIndependentOfSubsteps(t *testing.T) {
	const (
		friction = 1.0   // 1/ps
		dt       = 0.004 // ps
		steps    = 125
	)
	want := math.Exp(-friction * dt * steps)

	for substeps := 2; substeps <= 5; substeps++ {
		sys := mdsys.NewSystem()
		sys.AddParticle(2.0)
		c := mdsys.NewContext(sys)
		c.Vel[0] = r3.Vec{X: 1}

		integ := NewMTSLangevinIntegrator(0, friction, dt, Schedule{{0, substeps}})
		if err := integ.Step(c, steps); err != nil {
			t.Fatalf("substeps %d: %v", substeps, err)
		}
		if diff := math.Abs(c.Vel[0].X - want); diff > 1e-10 {
			t.Errorf("substeps %d: vx = %.12f, want %.12f", substeps, c.Vel[0].X, want)
		}
		if c.Vel[0].Y != 0 || c.Vel[0].Z != 0 {
			t.Errorf("substeps %d: noise injected at zero temperature: %v", substeps, c.Vel[0])
		}
	}
}

func TestLangevinSamplesTargetTemperature(t *testing.T) {
	const (
		target   = 300.0
		friction = 5.0
		dt       = 0.002
	)
	c := systems.IdealGas(125)
	c.SetVelocitiesToTemperature(target, 3)

	integ := NewMTSLangevinIntegrator(target, friction, dt, Schedule{{0, 1}})
	integ.SetRandomSeed(7)

	sum := 0.0
	const samples = 400
	for s := 0; s < samples; s++ {
		if err := integ.Step(c, 10); err != nil {
			t.Fatalf("step failed: %v", err)
		}
		sum += c.Temperature()
	}
	mean := sum / samples
	if math.Abs(mean-target)/target > 0.08 {
		t.Fatalf("mean temperature %.1f K, want %.0f K within 8%%", mean, target)
	}
	if !c.IsFinite() {
		t.Fatal("state diverged")
	}
}

func TestLangevinTrajectoryReproducibleBySeed(t *testing.T) {
	run := func(seed int64) []r3.Vec {
		c := systems.HarmonicLattice(8, 500)
		c.SetVelocitiesToTemperature(300, 11)
		integ := NewMTSLangevinIntegrator(300, 2, 0.002, Schedule{{0, 1}})
		integ.SetRandomSeed(seed)
		if err := integ.Step(c, 100); err != nil {
			t.Fatalf("step failed: %v", err)
		}
		return append([]r3.Vec(nil), c.Pos...)
	}

	a, b := run(42), run(42)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed, different trajectory at particle %d", i)
		}
	}
	if c := run(43); c[0] == a[0] {
		t.Fatal("different seeds produced an identical trajectory")
	}
}

func TestStochasticUpdateSkipsVirtualSites(t *testing.T) {
	sys := mdsys.NewSystem()
	sys.AddParticle(12.0)
	sys.AddParticle(0) // virtual site
	c := mdsys.NewContext(sys)
	c.Vel[0] = r3.Vec{X: 1}

	ou := NewStochasticVelocityUpdate(300, 1, 5)
	ou.Apply(c, 0.01)
	if c.Vel[1] != (r3.Vec{}) {
		t.Fatalf("virtual site velocity touched: %v", c.Vel[1])
	}
	if c.Vel[0].X == 1 {
		t.Fatal("massive particle velocity untouched")
	}
}

func TestLangevinConstraintsHoldUnderNoise(t *testing.T) {
	c := systems.ConstrainedChain(9)
	if err := c.ApplyConstraints(1e-6); err != nil {
		t.Fatalf("initial projection failed: %v", err)
	}

	integ := NewMTSLangevinIntegrator(300, 1, 0.001, Schedule{{1, 1}, {0, 4}})
	integ.SetConstraintTolerance(1e-6)
	integ.SetRandomSeed(17)
	if err := integ.Step(c, 500); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	for _, con := range c.System().Constraints() {
		dist := r3.Norm(r3.Sub(c.Pos[con.J], c.Pos[con.I]))
		if rel := math.Abs(dist-con.Distance) / con.Distance; rel > 1e-4 {
			t.Errorf("constraint (%d,%d) violated: distance %.6f", con.I, con.J, dist)
		}
	}
}
