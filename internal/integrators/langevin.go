package integrators

import (
	"math"
	"math/rand"

	"github.com/san-kum/mdsim/internal/mdsys"
	"github.com/san-kum/mdsim/internal/units"
)

// StochasticVelocityUpdate is an Ornstein-Uhlenbeck velocity operator:
// over an interval dt each velocity component relaxes as
//
//	v <- v·exp(-γ·dt) + ξ,  ξ ~ N(0, kT/m·(1 - exp(-2γ·dt)))
//
// with γ the collision rate. The random stream is private to the
// operator, so a seed reproduces a trajectory and two integrators never
// interfere.
type StochasticVelocityUpdate struct {
	temperature float64
	friction    float64
	rng         *rand.Rand
}

// NewStochasticVelocityUpdate creates the operator with target
// temperature (K), friction (1/ps) and a seed for its private stream.
func NewStochasticVelocityUpdate(temperature, friction float64, seed int64) *StochasticVelocityUpdate {
	return &StochasticVelocityUpdate{
		temperature: temperature,
		friction:    friction,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Temperature returns the target temperature in K.
func (s *StochasticVelocityUpdate) Temperature() float64 { return s.temperature }

// Friction returns the collision rate in 1/ps.
func (s *StochasticVelocityUpdate) Friction() float64 { return s.friction }

// Reseed restarts the private random stream.
func (s *StochasticVelocityUpdate) Reseed(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
}

// Apply relaxes every massive particle's velocity over an interval dt.
// Virtual sites are untouched.
func (s *StochasticVelocityUpdate) Apply(c *mdsys.Context, dt float64) {
	decay := math.Exp(-s.friction * dt)
	noise := math.Sqrt(units.KB * s.temperature * (1 - decay*decay))
	sys := c.System()
	for i := range c.Vel {
		m := sys.Mass(i)
		if m == 0 {
			continue
		}
		sigma := noise / math.Sqrt(m)
		c.Vel[i].X = decay*c.Vel[i].X + sigma*s.rng.NormFloat64()
		c.Vel[i].Y = decay*c.Vel[i].Y + sigma*s.rng.NormFloat64()
		c.Vel[i].Z = decay*c.Vel[i].Z + sigma*s.rng.NormFloat64()
	}
}

// MTSLangevinIntegrator composes MTSIntegrator with one stochastic
// velocity update per macro step, split symmetrically: a half-interval
// OU relaxation before the opening outer kick and another after the
// closing one. The two halves compose to exactly exp(-γΔt) velocity
// scaling per macro step, so thermostat strength depends only on the
// macro timestep and friction, never on the inner schedule.
type MTSLangevinIntegrator struct {
	mts *MTSIntegrator
	ou  *StochasticVelocityUpdate
}

// NewMTSLangevinIntegrator creates the thermostated integrator with
// target temperature (K), friction (1/ps), macro timestep dt (ps) and
// substep schedule.
func NewMTSLangevinIntegrator(temperature, friction, dt float64, schedule Schedule) *MTSLangevinIntegrator {
	return &MTSLangevinIntegrator{
		mts: NewMTSIntegrator(dt, schedule),
		ou:  NewStochasticVelocityUpdate(temperature, friction, 1),
	}
}

// Temperature returns the thermostat target temperature in K.
func (l *MTSLangevinIntegrator) Temperature() float64 { return l.ou.Temperature() }

// Friction returns the collision rate in 1/ps.
func (l *MTSLangevinIntegrator) Friction() float64 { return l.ou.Friction() }

// StepSize returns the macro timestep in ps.
func (l *MTSLangevinIntegrator) StepSize() float64 { return l.mts.StepSize() }

// Schedule returns the substep schedule.
func (l *MTSLangevinIntegrator) Schedule() Schedule { return l.mts.Schedule() }

// ConstraintTolerance returns the relative constraint tolerance.
func (l *MTSLangevinIntegrator) ConstraintTolerance() float64 { return l.mts.ConstraintTolerance() }

// SetConstraintTolerance overrides the relative constraint tolerance.
func (l *MTSLangevinIntegrator) SetConstraintTolerance(tol float64) {
	l.mts.SetConstraintTolerance(tol)
}

// SetRandomSeed restarts the integrator's private random stream.
func (l *MTSLangevinIntegrator) SetRandomSeed(seed int64) { l.ou.Reseed(seed) }

// Step advances the context by the given number of macro steps.
func (l *MTSLangevinIntegrator) Step(c *mdsys.Context, steps int) error {
	if err := l.mts.ensurePlan(c); err != nil {
		return err
	}
	dt := l.mts.dt
	tol := l.mts.tol
	for s := 0; s < steps; s++ {
		l.ou.Apply(c, 0.5*dt)
		if err := l.mts.plan.execute(c, dt, tol); err != nil {
			return err
		}
		l.ou.Apply(c, 0.5*dt)
		if err := c.ApplyVelocityConstraints(tol); err != nil {
			return err
		}
	}
	return nil
}
