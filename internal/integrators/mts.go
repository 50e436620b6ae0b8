package integrators

import (
	"github.com/san-kum/mdsim/internal/mdsys"
)

// DefaultConstraintTolerance is the relative distance tolerance used
// when the caller does not set one.
const DefaultConstraintTolerance = 1e-8

// MTSIntegrator advances dynamics with the nested velocity-Verlet
// (RESPA) scheme: each schedule level half-kicks with its own force
// group before and after its inner repetitions, and the innermost level
// drifts positions. The composition is symmetric and time reversible;
// energy drift stays bounded rather than exactly zero.
//
// The schedule is validated against the bound system on the first Step
// call. A malformed schedule fails there with a configuration error and
// leaves particle state untouched.
type MTSIntegrator struct {
	dt       float64
	schedule Schedule
	plan     *Plan
	tol      float64
}

// NewMTSIntegrator creates an integrator with macro timestep dt (ps)
// and the given substep schedule.
func NewMTSIntegrator(dt float64, schedule Schedule) *MTSIntegrator {
	return &MTSIntegrator{
		dt:       dt,
		schedule: schedule,
		tol:      DefaultConstraintTolerance,
	}
}

// StepSize returns the macro timestep in ps.
func (m *MTSIntegrator) StepSize() float64 { return m.dt }

// Schedule returns the configured substep schedule, normalized
// outermost-first once the plan has been compiled.
func (m *MTSIntegrator) Schedule() Schedule {
	if m.plan != nil {
		return m.plan.Schedule()
	}
	s := make(Schedule, len(m.schedule))
	copy(s, m.schedule)
	return s
}

// ConstraintTolerance returns the relative constraint tolerance.
func (m *MTSIntegrator) ConstraintTolerance() float64 { return m.tol }

// SetConstraintTolerance overrides the relative constraint tolerance.
func (m *MTSIntegrator) SetConstraintTolerance(tol float64) {
	if tol > 0 {
		m.tol = tol
	}
}

// ensurePlan compiles and caches the step program, validating the
// schedule against the system's force groups. Idempotent: once a plan
// exists the schedule is accepted and never re-checked destructively.
func (m *MTSIntegrator) ensurePlan(c *mdsys.Context) error {
	if m.plan != nil {
		return nil
	}
	plan, err := CompilePlan(m.schedule, c.System().ForceGroups())
	if err != nil {
		return err
	}
	m.plan = plan
	return nil
}

// Step advances the context by the given number of macro steps. A
// convergence failure mid-run returns with the context at the last
// completed stage.
func (m *MTSIntegrator) Step(c *mdsys.Context, steps int) error {
	if err := m.ensurePlan(c); err != nil {
		return err
	}
	for s := 0; s < steps; s++ {
		if err := m.plan.execute(c, m.dt, m.tol); err != nil {
			return err
		}
		if err := c.ApplyVelocityConstraints(m.tol); err != nil {
			return err
		}
	}
	return nil
}
