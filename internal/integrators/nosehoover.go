package integrators

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mdsim/internal/mdsys"
)

// thermostatSpec is a deferred chain configuration. Particle subsets
// and degree-of-freedom counts depend on the system, so chains are
// materialized when the integrator first binds to a context.
type thermostatSpec struct {
	allParticles bool
	systemPairs  bool // resolve pairs from the system's Drude pairs
	particles    []int
	pairs        [][2]int

	temperature  float64
	frequency    float64
	relTemp      float64
	relFrequency float64

	chainLength int
	numMTS      int
	numYS       int
}

// subsystem is a bound thermostat: the absolute chain couples to whole
// particle velocities and pair centers of mass, the relative chain (if
// any) to core-shell internal motion.
type subsystem struct {
	particles []int
	pairs     [][2]int
	abs       *ThermostatChain
	rel       *ThermostatChain
}

// NoseHooverIntegrator is velocity-Verlet stepping composed with one or
// more Nose-Hoover chain thermostats over explicitly selected particle
// subsets. Subsets need not cover the system; chains over disjoint
// subsets commute, overlapping chains compose sequentially.
type NoseHooverIntegrator struct {
	dt    float64
	tol   float64
	specs []thermostatSpec
	bound []*subsystem
}

// NewNoseHooverIntegrator creates a bare velocity-Verlet integrator
// with macro timestep dt (ps) and no thermostats. Add chains with
// AddThermostat or AddSubsystemThermostat before (or between) stepping.
func NewNoseHooverIntegrator(dt float64) *NoseHooverIntegrator {
	return &NoseHooverIntegrator{dt: dt, tol: DefaultConstraintTolerance}
}

// NewThermostatedNoseHooverIntegrator creates the integrator with one
// whole-system chain at the given temperature (K) and coupling
// frequency (1/ps), using default chain parameters.
func NewThermostatedNoseHooverIntegrator(temperature, frequency, dt float64) (*NoseHooverIntegrator, error) {
	n := NewNoseHooverIntegrator(dt)
	if err := n.AddThermostat(temperature, frequency); err != nil {
		return nil, err
	}
	return n, nil
}

// StepSize returns the macro timestep in ps.
func (n *NoseHooverIntegrator) StepSize() float64 { return n.dt }

// ConstraintTolerance returns the relative constraint tolerance.
func (n *NoseHooverIntegrator) ConstraintTolerance() float64 { return n.tol }

// SetConstraintTolerance overrides the relative constraint tolerance.
func (n *NoseHooverIntegrator) SetConstraintTolerance(tol float64) {
	if tol > 0 {
		n.tol = tol
	}
}

// AddThermostat couples the whole system to a single chain at the given
// temperature (K) and coupling frequency (1/ps) with default chain
// parameters.
func (n *NoseHooverIntegrator) AddThermostat(temperature, frequency float64) error {
	return n.addSpec(thermostatSpec{
		allParticles: true,
		systemPairs:  true,
		temperature:  temperature,
		frequency:    frequency,
		relTemp:      temperature,
		relFrequency: frequency,
		chainLength:  DefaultChainLength,
		numMTS:       DefaultChainLoops,
		numYS:        DefaultYoshidaSuzuki,
	})
}

// AddSubsystemThermostat couples an explicit particle subset and an
// explicit list of core-shell pairs. Absolute motion (plain particles
// and pair centers of mass) couples to a chain at temperature; pair
// relative motion couples to a second chain at relTemp. Either list may
// be empty, not both.
func (n *NoseHooverIntegrator) AddSubsystemThermostat(particles []int, pairs [][2]int,
	temperature, frequency, relTemp, relFrequency float64,
	chainLength, numMTS, numYS int) error {
	if len(particles) == 0 && len(pairs) == 0 {
		return ErrEmptySubset
	}
	return n.addSpec(thermostatSpec{
		particles:    append([]int(nil), particles...),
		pairs:        append([][2]int(nil), pairs...),
		temperature:  temperature,
		frequency:    frequency,
		relTemp:      relTemp,
		relFrequency: relFrequency,
		chainLength:  chainLength,
		numMTS:       numMTS,
		numYS:        numYS,
	})
}

// addSpec validates everything that does not need the system, then
// queues the spec for binding. A spec added after binding forces a
// rebind on the next step.
func (n *NoseHooverIntegrator) addSpec(s thermostatSpec) error {
	switch {
	case s.temperature <= 0:
		return fmt.Errorf("%w: %g K", ErrInvalidTemperature, s.temperature)
	case s.frequency <= 0:
		return fmt.Errorf("%w: %g /ps", ErrInvalidFrequency, s.frequency)
	case s.chainLength <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidChainLength, s.chainLength)
	case s.numMTS <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidLoopCount, s.numMTS)
	}
	if len(s.pairs) > 0 || s.systemPairs {
		if s.relTemp <= 0 {
			return fmt.Errorf("%w: %g K (relative)", ErrInvalidTemperature, s.relTemp)
		}
		if s.relFrequency <= 0 {
			return fmt.Errorf("%w: %g /ps (relative)", ErrInvalidFrequency, s.relFrequency)
		}
	}
	if _, ok := yoshidaSuzukiWeights[s.numYS]; !ok {
		return fmt.Errorf("%w: %d", ErrInvalidYoshidaSuzuki, s.numYS)
	}
	n.specs = append(n.specs, s)
	n.bound = nil
	return nil
}

// bind materializes chains against the system. It runs before any
// state mutation, so a bad configuration fails cleanly.
func (n *NoseHooverIntegrator) bind(c *mdsys.Context) error {
	if n.bound != nil || len(n.specs) == 0 {
		return nil
	}
	sys := c.System()
	bound := make([]*subsystem, 0, len(n.specs))
	for _, s := range n.specs {
		particles := s.particles
		pairs := s.pairs
		if s.allParticles {
			particles, pairs = resolveWholeSystem(sys, s.systemPairs)
		}
		sub := &subsystem{particles: particles, pairs: pairs}

		absDOF := absoluteDOF(sys, particles, pairs)
		if absDOF > 0 {
			chain, err := NewThermostatChain(s.temperature, s.frequency, absDOF, s.chainLength, s.numMTS, s.numYS)
			if err != nil {
				return err
			}
			sub.abs = chain
		}
		if len(pairs) > 0 {
			chain, err := NewThermostatChain(s.relTemp, s.relFrequency, 3*len(pairs), s.chainLength, s.numMTS, s.numYS)
			if err != nil {
				return err
			}
			sub.rel = chain
		}
		if sub.abs == nil && sub.rel == nil {
			return ErrEmptySubset
		}
		bound = append(bound, sub)
	}
	n.bound = bound
	return nil
}

// resolveWholeSystem splits the system into plain massive particles and
// (optionally) its registered Drude pairs.
func resolveWholeSystem(sys *mdsys.System, usePairs bool) ([]int, [][2]int) {
	var pairs [][2]int
	inPair := make(map[int]bool)
	if usePairs {
		for _, p := range sys.DrudePairs() {
			pairs = append(pairs, [2]int{p.Core, p.Shell})
			inPair[p.Core] = true
			inPair[p.Shell] = true
		}
	}
	var particles []int
	for i := 0; i < sys.NumParticles(); i++ {
		if sys.Mass(i) > 0 && !inPair[i] {
			particles = append(particles, i)
		}
	}
	return particles, pairs
}

// absoluteDOF counts the degrees of freedom coupled to the absolute
// chain: three per plain particle and per pair center of mass, minus
// constraints internal to the subset, minus three for center-of-mass
// motion when the subset spans the whole system.
func absoluteDOF(sys *mdsys.System, particles []int, pairs [][2]int) int {
	covered := make(map[int]bool, len(particles)+2*len(pairs))
	for _, i := range particles {
		covered[i] = true
	}
	for _, p := range pairs {
		covered[p[0]] = true
		covered[p[1]] = true
	}
	dof := 3 * (len(particles) + len(pairs))
	for _, con := range sys.Constraints() {
		if covered[con.I] && covered[con.J] {
			dof--
		}
	}
	massive := 0
	for i := 0; i < sys.NumParticles(); i++ {
		if sys.Mass(i) > 0 {
			massive++
		}
	}
	if len(covered) == massive && massive > 1 {
		dof -= 3
	}
	if dof < 0 {
		dof = 0
	}
	return dof
}

// Chains returns the materialized thermostat chains, absolute chains
// first within each subsystem. Empty until the first step binds.
func (n *NoseHooverIntegrator) Chains() []*ThermostatChain {
	var chains []*ThermostatChain
	for _, sub := range n.bound {
		if sub.abs != nil {
			chains = append(chains, sub.abs)
		}
		if sub.rel != nil {
			chains = append(chains, sub.rel)
		}
	}
	return chains
}

// HeatBathEnergy returns the total energy stored in every chain's
// auxiliary variables.
func (n *NoseHooverIntegrator) HeatBathEnergy() float64 {
	e := 0.0
	for _, ch := range n.Chains() {
		e += ch.HeatBathEnergy()
	}
	return e
}

// scaleSubsystems propagates every chain over a half interval and
// applies the resulting velocity scalings, splitting pair velocities
// into center-of-mass and relative parts so each couples to its own
// chain.
func (n *NoseHooverIntegrator) scaleSubsystems(c *mdsys.Context, halfDt float64) {
	sys := c.System()
	for _, sub := range n.bound {
		sAbs, sRel := 1.0, 1.0
		if sub.abs != nil {
			ke2 := 0.0
			for _, i := range sub.particles {
				ke2 += sys.Mass(i) * r3.Norm2(c.Vel[i])
			}
			for _, p := range sub.pairs {
				com, _ := pairVelocities(sys, c, p)
				ke2 += (sys.Mass(p[0]) + sys.Mass(p[1])) * r3.Norm2(com)
			}
			sAbs = sub.abs.Propagate(ke2, halfDt)
		}
		if sub.rel != nil {
			ke2 := 0.0
			for _, p := range sub.pairs {
				_, rel := pairVelocities(sys, c, p)
				ke2 += reducedMass(sys, p) * r3.Norm2(rel)
			}
			sRel = sub.rel.Propagate(ke2, halfDt)
		}
		for _, i := range sub.particles {
			c.Vel[i] = r3.Scale(sAbs, c.Vel[i])
		}
		for _, p := range sub.pairs {
			com, rel := pairVelocities(sys, c, p)
			com = r3.Scale(sAbs, com)
			rel = r3.Scale(sRel, rel)
			v1, v2 := recombinePair(sys, p, com, rel)
			c.Vel[p[0]], c.Vel[p[1]] = v1, v2
		}
	}
}

// pairVelocities splits a core-shell pair's velocities into
// center-of-mass and relative (shell minus core) components. The
// transform is stateless; recombinePair inverts it exactly.
func pairVelocities(sys *mdsys.System, c *mdsys.Context, p [2]int) (com, rel r3.Vec) {
	m1, m2 := sys.Mass(p[0]), sys.Mass(p[1])
	total := m1 + m2
	com = r3.Scale(1/total, r3.Add(r3.Scale(m1, c.Vel[p[0]]), r3.Scale(m2, c.Vel[p[1]])))
	rel = r3.Sub(c.Vel[p[1]], c.Vel[p[0]])
	return com, rel
}

// recombinePair reconstitutes particle velocities from center-of-mass
// and relative components.
func recombinePair(sys *mdsys.System, p [2]int, com, rel r3.Vec) (v1, v2 r3.Vec) {
	m1, m2 := sys.Mass(p[0]), sys.Mass(p[1])
	total := m1 + m2
	v1 = r3.Sub(com, r3.Scale(m2/total, rel))
	v2 = r3.Add(com, r3.Scale(m1/total, rel))
	return v1, v2
}

func reducedMass(sys *mdsys.System, p [2]int) float64 {
	m1, m2 := sys.Mass(p[0]), sys.Mass(p[1])
	return m1 * m2 / (m1 + m2)
}

// Step advances the context by the given number of macro steps:
// chain scalings, half kick, constrained drift, half kick, velocity
// constraints, chain scalings. A convergence failure mid-run returns
// with the context at the last completed stage.
func (n *NoseHooverIntegrator) Step(c *mdsys.Context, steps int) error {
	if err := n.bind(c); err != nil {
		return err
	}
	sys := c.System()
	np := c.NumParticles()
	for s := 0; s < steps; s++ {
		n.scaleSubsystems(c, 0.5*n.dt)

		f, _ := c.Forces(mdsys.AllGroups)
		half := 0.5 * n.dt
		for i := 0; i < np; i++ {
			w := sys.InvMass(i)
			if w == 0 {
				continue
			}
			c.Vel[i] = r3.Add(c.Vel[i], r3.Scale(half*w, f[i]))
		}

		if err := n.drift(c); err != nil {
			return err
		}

		f, _ = c.Forces(mdsys.AllGroups)
		for i := 0; i < np; i++ {
			w := sys.InvMass(i)
			if w == 0 {
				continue
			}
			c.Vel[i] = r3.Add(c.Vel[i], r3.Scale(half*w, f[i]))
		}
		if err := c.ApplyVelocityConstraints(n.tol); err != nil {
			return err
		}

		n.scaleSubsystems(c, 0.5*n.dt)
		c.AdvanceTime(n.dt)
	}
	return nil
}

// drift advances positions by the full timestep with constraint
// projection and RATTLE-style velocity correction.
func (n *NoseHooverIntegrator) drift(c *mdsys.Context) error {
	np := c.NumParticles()
	pred := make([]r3.Vec, np)
	for i := 0; i < np; i++ {
		c.Pos[i] = r3.Add(c.Pos[i], r3.Scale(n.dt, c.Vel[i]))
		pred[i] = c.Pos[i]
	}
	c.InvalidateForces()
	if c.System().NumConstraints() == 0 {
		return nil
	}
	if err := c.ApplyConstraints(n.tol); err != nil {
		return err
	}
	for i := 0; i < np; i++ {
		c.Vel[i] = r3.Add(c.Vel[i], r3.Scale(1/n.dt, r3.Sub(c.Pos[i], pred[i])))
	}
	return nil
}
