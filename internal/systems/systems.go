// Package systems builds the demo and test systems used by the CLI and
// the test suites. Each builder returns a ready context with positions
// set; velocities start at zero unless noted.
package systems

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mdsim/internal/forces"
	"github.com/san-kum/mdsim/internal/mdsys"
)

// Argon Lennard-Jones parameters.
const (
	ArgonMass    = 39.948 // amu
	ArgonSigma   = 0.3405 // nm
	ArgonEpsilon = 0.996  // kJ/mol
)

// ConstrainedChain builds the 8-particle constrained test system: five
// unit-distance constraints over alternating 5/10 amu particles with
// alternating ±0.2e charges, the nonbonded force in group 1 so an MTS
// schedule can run a constraint-only inner loop in group 0. Velocities
// are drawn uniformly from [-0.5, 0.5) nm/ps per component.
func ConstrainedChain(seed int64) *mdsys.Context {
	const numParticles = 8
	sys := mdsys.NewSystem()
	nb := forces.NewNonbonded()
	nb.SetForceGroup(1)
	for i := 0; i < numParticles; i++ {
		if i%2 == 0 {
			sys.AddParticle(5.0)
			nb.AddParticle(0.2, 0.5, 5.0)
		} else {
			sys.AddParticle(10.0)
			nb.AddParticle(-0.2, 0.5, 5.0)
		}
	}
	sys.AddConstraint(0, 1, 1.0)
	sys.AddConstraint(1, 2, 1.0)
	sys.AddConstraint(2, 3, 1.0)
	sys.AddConstraint(4, 5, 1.0)
	sys.AddConstraint(6, 7, 1.0)
	for _, c := range sys.Constraints() {
		nb.AddExclusion(c.I, c.J)
	}
	sys.AddForce(nb)

	c := mdsys.NewContext(sys)
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < numParticles; i++ {
		c.Pos[i] = r3.Vec{X: float64(i) / 2, Y: float64(i+1) / 2}
		c.Vel[i] = r3.Vec{
			X: rng.Float64() - 0.5,
			Y: rng.Float64() - 0.5,
			Z: rng.Float64() - 0.5,
		}
	}
	return c
}

// IdealGas builds n non-interacting argon-mass particles on a cubic
// lattice. With no forces at all it isolates thermostat behavior.
func IdealGas(n int) *mdsys.Context {
	sys := mdsys.NewSystem()
	for i := 0; i < n; i++ {
		sys.AddParticle(ArgonMass)
	}
	c := mdsys.NewContext(sys)
	placeLattice(c.Pos, 0.5)
	return c
}

// HarmonicLattice builds n particles of 12 amu, each tethered to its
// lattice site by a harmonic anchor of stiffness k (kJ/(mol·nm²)). An
// Einstein crystal: every mode is a known oscillator, which makes
// thermostat behavior easy to reason about.
func HarmonicLattice(n int, k float64) *mdsys.Context {
	sys := mdsys.NewSystem()
	anchor := forces.NewHarmonicAnchor()
	for i := 0; i < n; i++ {
		sys.AddParticle(12.0)
	}
	c := mdsys.NewContext(sys)
	placeLattice(c.Pos, 0.5)
	for i := 0; i < n; i++ {
		anchor.AddAnchor(i, c.Pos[i], k)
	}
	sys.AddForce(anchor)
	return c
}

// ArgonCluster builds n argon atoms on a lattice with Lennard-Jones
// interactions in group 0.
func ArgonCluster(n int) *mdsys.Context {
	sys := mdsys.NewSystem()
	nb := forces.NewNonbonded()
	for i := 0; i < n; i++ {
		sys.AddParticle(ArgonMass)
		nb.AddParticle(0, ArgonSigma, ArgonEpsilon)
	}
	sys.AddForce(nb)
	c := mdsys.NewContext(sys)
	placeLattice(c.Pos, 0.38)
	return c
}

// DrudeLattice builds n polarizable sites: a 15.6 amu core with a
// 0.4 amu Drude shell spring-bonded to it, cores anchored to lattice
// sites. Core/shell carry ±1e with the intra-pair interaction excluded,
// so sites interact as induced dipoles. Spring stiffness and anchor
// stiffness are chosen so a 1 fs step resolves both motions.
func DrudeLattice(n int) *mdsys.Context {
	const (
		coreMass  = 15.6
		shellMass = 0.4
		springK   = 1.0e5 // kJ/(mol·nm²)
		anchorK   = 1000.0
	)
	sys := mdsys.NewSystem()
	nb := forces.NewNonbonded()
	bonds := forces.NewHarmonicBond()
	anchor := forces.NewHarmonicAnchor()

	cores := make([]int, n)
	shells := make([]int, n)
	for i := 0; i < n; i++ {
		cores[i] = sys.AddParticle(coreMass)
		nb.AddParticle(1.0, ArgonSigma, ArgonEpsilon)
		shells[i] = sys.AddParticle(shellMass)
		nb.AddParticle(-1.0, 1.0, 0.0)
		bonds.AddBond(cores[i], shells[i], 0, springK)
		nb.AddExclusion(cores[i], shells[i])
		sys.AddDrudePair(cores[i], shells[i])
	}
	sys.AddForce(nb)
	sys.AddForce(bonds)
	sys.AddForce(anchor)

	c := mdsys.NewContext(sys)
	sites := make([]r3.Vec, n)
	placeLattice(sites, 0.45)
	for i := 0; i < n; i++ {
		c.Pos[cores[i]] = sites[i]
		c.Pos[shells[i]] = r3.Add(sites[i], r3.Vec{X: 0.001})
		anchor.AddAnchor(cores[i], sites[i], anchorK)
	}
	return c
}

// placeLattice fills pos with points of a cubic lattice of the given
// spacing, centered near the origin.
func placeLattice(pos []r3.Vec, spacing float64) {
	n := len(pos)
	side := int(math.Ceil(math.Cbrt(float64(n))))
	i := 0
	for x := 0; x < side && i < n; x++ {
		for y := 0; y < side && i < n; y++ {
			for z := 0; z < side && i < n; z++ {
				pos[i] = r3.Vec{
					X: float64(x) * spacing,
					Y: float64(y) * spacing,
					Z: float64(z) * spacing,
				}
				i++
			}
		}
	}
}
