package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mdsim/internal/mdsys"
)

func TestConstrainedChain(t *testing.T) {
	c := ConstrainedChain(1)
	sys := c.System()
	if sys.NumParticles() != 8 {
		t.Fatalf("particles %d, want 8", sys.NumParticles())
	}
	if sys.NumConstraints() != 5 {
		t.Fatalf("constraints %d, want 5", sys.NumConstraints())
	}
	// Nonbonded forces must live in group 1, leaving group 0 free for a
	// constraint-only inner loop.
	if fg := sys.ForceGroups(); fg != mdsys.MaskFor(1) {
		t.Fatalf("force groups %b, want group 1 only", fg)
	}
	if sys.DegreesOfFreedom() != 16 {
		t.Fatalf("dof %d, want 16", sys.DegreesOfFreedom())
	}
	// Positions come unprojected; the constraints become satisfiable.
	if err := c.ApplyConstraints(1e-8); err != nil {
		t.Fatalf("projection failed: %v", err)
	}
	for _, con := range sys.Constraints() {
		dist := r3.Norm(r3.Sub(c.Pos[con.J], c.Pos[con.I]))
		if math.Abs(dist-con.Distance) > 1e-7 {
			t.Errorf("constraint (%d,%d) distance %.8f", con.I, con.J, dist)
		}
	}
}

func TestConstrainedChainSeedReproducible(t *testing.T) {
	a := ConstrainedChain(7)
	b := ConstrainedChain(7)
	for i := range a.Vel {
		if a.Vel[i] != b.Vel[i] {
			t.Fatalf("velocities differ at particle %d for equal seeds", i)
		}
	}
}

func TestIdealGasHasNoForces(t *testing.T) {
	c := IdealGas(27)
	if c.System().NumParticles() != 27 {
		t.Fatalf("particles %d", c.System().NumParticles())
	}
	if len(c.System().Forces()) != 0 {
		t.Fatal("ideal gas carries forces")
	}
	if pe := c.PotentialEnergy(mdsys.AllGroups); pe != 0 {
		t.Fatalf("potential energy %g", pe)
	}
}

func TestHarmonicLatticeRestsAtMinimum(t *testing.T) {
	c := HarmonicLattice(8, 1000)
	if pe := c.PotentialEnergy(mdsys.AllGroups); math.Abs(pe) > 1e-12 {
		t.Fatalf("lattice potential %g at rest, want 0", pe)
	}
	f, _ := c.Forces(mdsys.AllGroups)
	for i, fv := range f {
		if r3.Norm(fv) > 1e-12 {
			t.Fatalf("residual force %v on particle %d at rest", fv, i)
		}
	}
}

func TestArgonClusterSpacing(t *testing.T) {
	c := ArgonCluster(8)
	if c.System().NumParticles() != 8 {
		t.Fatalf("particles %d", c.System().NumParticles())
	}
	// Lattice points must be distinct.
	for i := 0; i < 8; i++ {
		for j := i + 1; j < 8; j++ {
			if r3.Norm(r3.Sub(c.Pos[i], c.Pos[j])) < 1e-9 {
				t.Fatalf("particles %d and %d coincide", i, j)
			}
		}
	}
}

func TestDrudeLattice(t *testing.T) {
	const n = 4
	c := DrudeLattice(n)
	sys := c.System()
	if sys.NumParticles() != 2*n {
		t.Fatalf("particles %d, want %d", sys.NumParticles(), 2*n)
	}
	pairs := sys.DrudePairs()
	if len(pairs) != n {
		t.Fatalf("pairs %d, want %d", len(pairs), n)
	}
	for _, p := range pairs {
		if sys.Mass(p.Core) <= sys.Mass(p.Shell) {
			t.Fatalf("pair (%d,%d): shell heavier than core", p.Core, p.Shell)
		}
		if d := r3.Norm(r3.Sub(c.Pos[p.Shell], c.Pos[p.Core])); d == 0 || d > 0.01 {
			t.Fatalf("pair (%d,%d): shell offset %g", p.Core, p.Shell, d)
		}
	}
	if pe := c.PotentialEnergy(mdsys.AllGroups); math.IsNaN(pe) || math.IsInf(pe, 0) {
		t.Fatalf("potential energy %g", pe)
	}
}
