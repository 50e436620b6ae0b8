package mdsys

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mdsim/internal/constraints"
	"github.com/san-kum/mdsim/internal/units"
)

type forceCacheEntry struct {
	rev    uint64
	forces []r3.Vec
	energy float64
}

// Context holds the dynamic state of a simulated system: positions,
// velocities, evaluated forces and the running simulation clock.
// Integrators read and write it each step; force evaluation is cached
// per group mask and invalidated whenever positions change.
type Context struct {
	sys *System

	Pos []r3.Vec
	Vel []r3.Vec

	time   float64
	posRev uint64

	cache map[GroupMask]*forceCacheEntry
	proj  *constraints.Projector
}

// NewContext creates a context for sys with zeroed state.
func NewContext(sys *System) *Context {
	n := sys.NumParticles()
	invMass := make([]float64, n)
	for i := 0; i < n; i++ {
		invMass[i] = sys.InvMass(i)
	}
	return &Context{
		sys:   sys,
		Pos:   make([]r3.Vec, n),
		Vel:   make([]r3.Vec, n),
		cache: make(map[GroupMask]*forceCacheEntry),
		proj:  constraints.NewProjector(sys.Constraints(), invMass),
	}
}

// System returns the simulated system description.
func (c *Context) System() *System { return c.sys }

// NumParticles returns the particle count.
func (c *Context) NumParticles() int { return len(c.Pos) }

// Time returns the simulation clock in ps.
func (c *Context) Time() float64 { return c.time }

// AdvanceTime moves the simulation clock forward by dt.
func (c *Context) AdvanceTime(dt float64) { c.time += dt }

// SetPositions copies pos into the context and invalidates cached forces.
func (c *Context) SetPositions(pos []r3.Vec) {
	copy(c.Pos, pos)
	c.InvalidateForces()
}

// SetVelocities copies vel into the context.
func (c *Context) SetVelocities(vel []r3.Vec) {
	copy(c.Vel, vel)
}

// InvalidateForces marks every cached force evaluation stale. Any code
// that mutates c.Pos directly must call it.
func (c *Context) InvalidateForces() { c.posRev++ }

// Forces evaluates (or returns cached) forces and potential energy for
// the groups selected by mask.
func (c *Context) Forces(mask GroupMask) ([]r3.Vec, float64) {
	if e, ok := c.cache[mask]; ok && e.rev == c.posRev {
		return e.forces, e.energy
	}
	e, ok := c.cache[mask]
	if !ok {
		e = &forceCacheEntry{forces: make([]r3.Vec, len(c.Pos))}
		c.cache[mask] = e
	}
	for i := range e.forces {
		e.forces[i] = r3.Vec{}
	}
	e.energy = 0
	for _, f := range c.sys.forces {
		e.energy += f.AddForces(c.Pos, e.forces, mask)
	}
	e.rev = c.posRev
	return e.forces, e.energy
}

// GroupForces evaluates forces and potential energy for a single group.
func (c *Context) GroupForces(group int) ([]r3.Vec, float64) {
	return c.Forces(MaskFor(group))
}

// PotentialEnergy returns the potential energy of the selected groups.
func (c *Context) PotentialEnergy(mask GroupMask) float64 {
	_, pe := c.Forces(mask)
	return pe
}

// KineticEnergy returns the total kinetic energy in kJ/mol. Virtual
// sites contribute nothing.
func (c *Context) KineticEnergy() float64 {
	ke := 0.0
	for i, v := range c.Vel {
		ke += 0.5 * c.sys.masses[i] * r3.Norm2(v)
	}
	return ke
}

// Temperature returns the instantaneous temperature from the
// equipartition theorem, corrected for constraints and center-of-mass
// motion.
func (c *Context) Temperature() float64 {
	dof := c.sys.DegreesOfFreedom()
	if dof == 0 {
		return 0
	}
	return 2 * c.KineticEnergy() / (float64(dof) * units.KB)
}

// ApplyConstraints projects positions onto the constraint manifold
// within the given relative tolerance.
func (c *Context) ApplyConstraints(tol float64) error {
	if c.sys.NumConstraints() == 0 {
		return nil
	}
	err := c.proj.Project(c.Pos, tol)
	c.InvalidateForces()
	return err
}

// ApplyVelocityConstraints removes along-bond relative velocity on
// every constrained pair.
func (c *Context) ApplyVelocityConstraints(tol float64) error {
	if c.sys.NumConstraints() == 0 {
		return nil
	}
	return c.proj.ProjectVelocities(c.Pos, c.Vel, tol)
}

// SetVelocitiesToTemperature draws velocities from the
// Maxwell-Boltzmann distribution at temperature T, leaving virtual
// sites at rest.
func (c *Context) SetVelocitiesToTemperature(T float64, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range c.Vel {
		m := c.sys.masses[i]
		if m == 0 {
			c.Vel[i] = r3.Vec{}
			continue
		}
		sigma := math.Sqrt(units.KB * T / m)
		c.Vel[i] = r3.Vec{
			X: sigma * rng.NormFloat64(),
			Y: sigma * rng.NormFloat64(),
			Z: sigma * rng.NormFloat64(),
		}
	}
}

// IsFinite reports whether every position and velocity component is a
// finite number. Integrators never check this themselves; divergence
// monitoring is the caller's job.
func (c *Context) IsFinite() bool {
	finite := func(v r3.Vec) bool {
		for _, x := range []float64{v.X, v.Y, v.Z} {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return false
			}
		}
		return true
	}
	for i := range c.Pos {
		if !finite(c.Pos[i]) || !finite(c.Vel[i]) {
			return false
		}
	}
	return true
}
