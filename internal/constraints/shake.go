// Package constraints implements iterative distance-constraint
// projection (SHAKE for positions, RATTLE for velocities). The
// integrator core treats the projector as an opaque service: it hands
// over positions or velocities and a tolerance, and gets back either a
// satisfied configuration or ErrNotConverged.
package constraints

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultMaxIterations bounds the SHAKE/RATTLE sweep count before the
// projector gives up and reports a convergence failure.
const DefaultMaxIterations = 150

// ErrNotConverged is returned when projection cannot satisfy every
// constraint within the iteration budget.
var ErrNotConverged = fmt.Errorf("constraints: projection did not converge")

// Constraint fixes the distance between two particles.
type Constraint struct {
	I, J     int
	Distance float64
}

// Projector applies distance constraints to particle positions and
// velocities. It is stateless between calls apart from its
// configuration, so one projector may serve many steps.
type Projector struct {
	cons    []Constraint
	invMass []float64
	maxIter int
}

// NewProjector builds a projector over the given constraints.
// Particles with zero inverse mass are treated as immovable.
func NewProjector(cons []Constraint, invMass []float64) *Projector {
	return &Projector{
		cons:    cons,
		invMass: invMass,
		maxIter: DefaultMaxIterations,
	}
}

// NumConstraints returns the number of constraints the projector enforces.
func (p *Projector) NumConstraints() int { return len(p.cons) }

// SetMaxIterations overrides the iteration budget.
func (p *Projector) SetMaxIterations(n int) {
	if n > 0 {
		p.maxIter = n
	}
}

// Project adjusts pos in place until every constrained distance is
// within the relative tolerance tol of its target. Corrections are
// applied along the current bond vector, split by inverse mass.
func (p *Projector) Project(pos []r3.Vec, tol float64) error {
	if len(p.cons) == 0 {
		return nil
	}
	for iter := 0; iter < p.maxIter; iter++ {
		converged := true
		for _, c := range p.cons {
			r := r3.Sub(pos[c.J], pos[c.I])
			dist := r3.Norm(r)
			diff := dist - c.Distance
			if math.Abs(diff) <= tol*c.Distance {
				continue
			}
			converged = false
			wi, wj := p.invMass[c.I], p.invMass[c.J]
			wSum := wi + wj
			if wSum == 0 || dist == 0 {
				continue
			}
			corr := r3.Scale(diff/(dist*wSum), r)
			pos[c.I] = r3.Add(pos[c.I], r3.Scale(wi, corr))
			pos[c.J] = r3.Sub(pos[c.J], r3.Scale(wj, corr))
		}
		if converged {
			return nil
		}
	}
	return fmt.Errorf("%w after %d iterations (positions)", ErrNotConverged, p.maxIter)
}

// ProjectVelocities removes the component of each constrained pair's
// relative velocity along the bond direction, so constrained distances
// are stationary to first order. tol is the largest acceptable
// along-bond relative speed (nm/ps).
func (p *Projector) ProjectVelocities(pos []r3.Vec, vel []r3.Vec, tol float64) error {
	if len(p.cons) == 0 {
		return nil
	}
	for iter := 0; iter < p.maxIter; iter++ {
		converged := true
		for _, c := range p.cons {
			r := r3.Sub(pos[c.J], pos[c.I])
			dist := r3.Norm(r)
			if dist == 0 {
				continue
			}
			n := r3.Scale(1/dist, r)
			vrel := r3.Dot(r3.Sub(vel[c.J], vel[c.I]), n)
			if math.Abs(vrel) <= tol {
				continue
			}
			converged = false
			wi, wj := p.invMass[c.I], p.invMass[c.J]
			wSum := wi + wj
			if wSum == 0 {
				continue
			}
			g := vrel / wSum
			vel[c.I] = r3.Add(vel[c.I], r3.Scale(g*wi, n))
			vel[c.J] = r3.Sub(vel[c.J], r3.Scale(g*wj, n))
		}
		if converged {
			return nil
		}
	}
	return fmt.Errorf("%w after %d iterations (velocities)", ErrNotConverged, p.maxIter)
}
