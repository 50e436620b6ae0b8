package mdsys

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mdsim/internal/constraints"
)

// MaxForceGroups is the number of force-group slots. Group ids are
// small integers packed into a 32-bit mask.
const MaxForceGroups = 32

// GroupMask selects a subset of force groups for evaluation.
type GroupMask uint32

// AllGroups selects every force group.
const AllGroups GroupMask = 0xffffffff

// MaskFor returns the mask selecting a single group.
func MaskFor(group int) GroupMask { return 1 << uint(group) }

// Contains reports whether the mask includes the given group.
func (m GroupMask) Contains(group int) bool {
	return group >= 0 && group < MaxForceGroups && m&MaskFor(group) != 0
}

// Force is a potential-energy term. A force contributes to one or more
// force groups (long-range electrostatics may split its direct and
// reciprocal parts across two). AddForces accumulates the gradient
// contribution of the parts selected by mask into f and returns the
// corresponding potential energy.
type Force interface {
	Groups() []int
	AddForces(pos []r3.Vec, f []r3.Vec, mask GroupMask) float64
}

// Integrator advances a context by whole steps. Implementations must
// validate their configuration before mutating any particle state.
type Integrator interface {
	Step(c *Context, steps int) error
}

// DrudePair names a polarizable core particle and its attached Drude
// shell particle.
type DrudePair struct {
	Core, Shell int
}

// System is the immutable description of what is simulated: particle
// masses, potential-energy terms, distance constraints and Drude pairs.
// Dynamic state (positions, velocities) lives in a Context.
type System struct {
	masses      []float64
	forces      []Force
	constraints []constraints.Constraint
	drudePairs  []DrudePair
}

// NewSystem returns an empty system.
func NewSystem() *System {
	return &System{}
}

// AddParticle appends a particle and returns its index. A mass of zero
// marks a virtual site: it carries no kinetic energy and is never moved
// by kicks or thermostats.
func (s *System) AddParticle(mass float64) int {
	s.masses = append(s.masses, mass)
	return len(s.masses) - 1
}

// AddForce registers a potential-energy term.
func (s *System) AddForce(f Force) {
	s.forces = append(s.forces, f)
}

// AddConstraint fixes the distance between particles i and j.
func (s *System) AddConstraint(i, j int, distance float64) {
	s.constraints = append(s.constraints, constraints.Constraint{I: i, J: j, Distance: distance})
}

// AddDrudePair registers a core-shell pair for two-temperature
// thermostatting.
func (s *System) AddDrudePair(core, shell int) {
	s.drudePairs = append(s.drudePairs, DrudePair{Core: core, Shell: shell})
}

// NumParticles returns the particle count.
func (s *System) NumParticles() int { return len(s.masses) }

// NumConstraints returns the constraint count.
func (s *System) NumConstraints() int { return len(s.constraints) }

// Mass returns the mass of particle i in amu.
func (s *System) Mass(i int) float64 { return s.masses[i] }

// InvMass returns 1/mass, or 0 for virtual sites.
func (s *System) InvMass(i int) float64 {
	if s.masses[i] == 0 {
		return 0
	}
	return 1 / s.masses[i]
}

// Constraints returns the configured distance constraints.
func (s *System) Constraints() []constraints.Constraint { return s.constraints }

// DrudePairs returns the registered core-shell pairs.
func (s *System) DrudePairs() []DrudePair { return s.drudePairs }

// Forces returns the registered potential-energy terms.
func (s *System) Forces() []Force { return s.forces }

// ForceGroups returns the mask of groups that carry at least one force.
func (s *System) ForceGroups() GroupMask {
	var m GroupMask
	for _, f := range s.forces {
		for _, g := range f.Groups() {
			if g >= 0 && g < MaxForceGroups {
				m |= MaskFor(g)
			}
		}
	}
	return m
}

// DegreesOfFreedom returns the kinetic degree-of-freedom count used for
// equipartition: three per massive particle, minus one per constraint,
// minus three for overall center-of-mass motion when the system has
// more than one massive particle.
func (s *System) DegreesOfFreedom() int {
	massive := 0
	for _, m := range s.masses {
		if m > 0 {
			massive++
		}
	}
	dof := 3*massive - len(s.constraints)
	if massive > 1 {
		dof -= 3
	}
	if dof < 0 {
		dof = 0
	}
	return dof
}
