package integrators

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mdsim/internal/mdsys"
)

// Configuration errors reported by schedule validation. Each malformed
// schedule is rejected with exactly one of these, wrapped with detail,
// before any particle state is touched.
var (
	ErrEmptySchedule       = fmt.Errorf("integrators: schedule has no force groups")
	ErrDuplicateGroup      = fmt.Errorf("integrators: force group listed twice in schedule")
	ErrGroupOutOfRange     = fmt.Errorf("integrators: force group outside [0, 31]")
	ErrBadSubstepCount     = fmt.Errorf("integrators: substep count must be at least 1")
	ErrUncoveredGroup      = fmt.Errorf("integrators: system force group missing from schedule")
	ErrIncompatibleNesting = fmt.Errorf("integrators: substep counts do not nest")
)

// GroupSubsteps assigns an evaluation frequency to one force group:
// the group's forces are evaluated Substeps times per macro step.
type GroupSubsteps struct {
	Group    int
	Substeps int
}

// Schedule lists (group, substeps) pairs for a multiple-time-step
// integrator. Order is not significant; levels are sorted by substep
// count, fewest evaluations outermost.
type Schedule []GroupSubsteps

type opKind int

const (
	opKick opKind = iota
	opDrift
)

// op is one instruction of the compiled step program. Kick scales the
// group's forces by dt; drift advances positions by dt with constraint
// projection.
type op struct {
	kind  opKind
	group int
	dt    float64 // fraction of the macro timestep (1/substeps)
}

// Plan is a validated schedule compiled to a flat instruction list.
// Executing the list performs one macro step of the nested
// velocity-Verlet (RESPA) scheme: each level half-kicks with its own
// group before and after its inner repetitions, and the innermost level
// drifts positions.
type Plan struct {
	schedule Schedule
	program  []op
	pred     []r3.Vec // drift scratch, predicted positions
}

// Validate checks a schedule against the set of groups carrying forces
// on the system. It is pure: the same inputs always produce the same
// verdict, and validation never mutates anything, so re-validating an
// accepted schedule is a no-op.
//
// The nesting rule: after sorting levels by substep count, every
// level's count must be an integer multiple of the next slower level's
// count, so each outer level repeats its inner dynamics a whole number
// of times. A schedule group carrying no forces is allowed (the level
// then only drifts and projects constraints), but every group present
// on the system must appear.
func Validate(schedule Schedule, present mdsys.GroupMask) error {
	if len(schedule) == 0 {
		return ErrEmptySchedule
	}
	var seen mdsys.GroupMask
	for _, gs := range schedule {
		if gs.Group < 0 || gs.Group >= mdsys.MaxForceGroups {
			return fmt.Errorf("%w: group %d", ErrGroupOutOfRange, gs.Group)
		}
		if gs.Substeps < 1 {
			return fmt.Errorf("%w: group %d has %d", ErrBadSubstepCount, gs.Group, gs.Substeps)
		}
		if seen.Contains(gs.Group) {
			return fmt.Errorf("%w: group %d", ErrDuplicateGroup, gs.Group)
		}
		seen |= mdsys.MaskFor(gs.Group)
	}
	if missing := present &^ seen; missing != 0 {
		for g := 0; g < mdsys.MaxForceGroups; g++ {
			if missing.Contains(g) {
				return fmt.Errorf("%w: group %d", ErrUncoveredGroup, g)
			}
		}
	}
	sorted := sortedBySubsteps(schedule)
	for i := 1; i < len(sorted); i++ {
		outer, inner := sorted[i-1], sorted[i]
		if inner.Substeps%outer.Substeps != 0 {
			return fmt.Errorf("%w: group %d (%d substeps) inside group %d (%d substeps)",
				ErrIncompatibleNesting, inner.Group, inner.Substeps, outer.Group, outer.Substeps)
		}
	}
	return nil
}

// CompilePlan validates the schedule and compiles the flat step
// program. The program is built once; executing it is a plain loop, so
// wide schedules cost no call-stack depth at step time.
func CompilePlan(schedule Schedule, present mdsys.GroupMask) (*Plan, error) {
	if err := Validate(schedule, present); err != nil {
		return nil, err
	}
	sorted := sortedBySubsteps(schedule)
	p := &Plan{schedule: sorted}
	p.compile(1, sorted)
	return p, nil
}

func sortedBySubsteps(schedule Schedule) Schedule {
	sorted := make(Schedule, len(schedule))
	copy(sorted, schedule)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Substeps < sorted[j].Substeps
	})
	return sorted
}

// compile appends the ops for the level headed by levels[0], which must
// run levels[0].Substeps/parentSubsteps times per parent iteration.
// Recursion depth is bounded by the level count (at most 32).
func (p *Plan) compile(parentSubsteps int, levels Schedule) {
	level := levels[0]
	repeats := level.Substeps / parentSubsteps
	dt := 1 / float64(level.Substeps)
	for r := 0; r < repeats; r++ {
		p.program = append(p.program, op{kind: opKick, group: level.Group, dt: 0.5 * dt})
		if len(levels) == 1 {
			p.program = append(p.program, op{kind: opDrift, dt: dt})
		} else {
			p.compile(level.Substeps, levels[1:])
		}
		p.program = append(p.program, op{kind: opKick, group: level.Group, dt: 0.5 * dt})
	}
}

// Schedule returns the normalized (outermost-first) schedule.
func (p *Plan) Schedule() Schedule {
	s := make(Schedule, len(p.schedule))
	copy(s, p.schedule)
	return s
}

// LevelTimesteps reports the effective timestep of each level,
// outermost first, for a given macro timestep.
func (p *Plan) LevelTimesteps(dt float64) []float64 {
	steps := make([]float64, len(p.schedule))
	for i, gs := range p.schedule {
		steps[i] = dt / float64(gs.Substeps)
	}
	return steps
}

// execute runs one macro step of the compiled program on c.
func (p *Plan) execute(c *mdsys.Context, dt, tol float64) error {
	hasConstraints := c.System().NumConstraints() > 0
	sys := c.System()
	n := c.NumParticles()
	for _, o := range p.program {
		switch o.kind {
		case opKick:
			f, _ := c.GroupForces(o.group)
			h := o.dt * dt
			for i := 0; i < n; i++ {
				w := sys.InvMass(i)
				if w == 0 {
					continue
				}
				c.Vel[i].X += h * w * f[i].X
				c.Vel[i].Y += h * w * f[i].Y
				c.Vel[i].Z += h * w * f[i].Z
			}
		case opDrift:
			h := o.dt * dt
			if hasConstraints {
				if err := p.driftConstrained(c, h, tol); err != nil {
					return err
				}
			} else {
				for i := 0; i < n; i++ {
					c.Pos[i].X += h * c.Vel[i].X
					c.Pos[i].Y += h * c.Vel[i].Y
					c.Pos[i].Z += h * c.Vel[i].Z
				}
				c.InvalidateForces()
			}
		}
	}
	c.AdvanceTime(dt)
	return nil
}

// driftConstrained drifts positions by h, projects them back onto the
// constraint manifold and folds the projection displacement back into
// the velocities, the RATTLE-style position half.
func (p *Plan) driftConstrained(c *mdsys.Context, h, tol float64) error {
	n := c.NumParticles()
	if len(p.pred) != n {
		p.pred = make([]r3.Vec, n)
	}
	for i := 0; i < n; i++ {
		c.Pos[i].X += h * c.Vel[i].X
		c.Pos[i].Y += h * c.Vel[i].Y
		c.Pos[i].Z += h * c.Vel[i].Z
		p.pred[i] = c.Pos[i]
	}
	c.InvalidateForces()
	if err := c.ApplyConstraints(tol); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		c.Vel[i].X += (c.Pos[i].X - p.pred[i].X) / h
		c.Vel[i].Y += (c.Pos[i].Y - p.pred[i].Y) / h
		c.Vel[i].Z += (c.Pos[i].Z - p.pred[i].Z) / h
	}
	return nil
}
