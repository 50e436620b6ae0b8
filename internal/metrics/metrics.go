// Package metrics provides observables accumulated over an integration
// run. Each metric observes the context once per report interval and
// reduces to a single value.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/mdsim/internal/mdsys"
)

// Metric accumulates one observable over a run.
type Metric interface {
	Name() string
	Observe(c *mdsys.Context)
	Value() float64
	Reset()
}

// Temperature reports the time-averaged instantaneous temperature.
type Temperature struct {
	samples []float64
}

// NewTemperature returns an empty temperature average.
func NewTemperature() *Temperature { return &Temperature{} }

// Name implements Metric.
func (t *Temperature) Name() string { return "temperature" }

// Observe implements Metric.
func (t *Temperature) Observe(c *mdsys.Context) {
	t.samples = append(t.samples, c.Temperature())
}

// Value returns the mean of the observed instantaneous temperatures.
func (t *Temperature) Value() float64 {
	if len(t.samples) == 0 {
		return 0
	}
	return stat.Mean(t.samples, nil)
}

// StdDev returns the standard deviation of the observed temperatures.
func (t *Temperature) StdDev() float64 {
	if len(t.samples) < 2 {
		return 0
	}
	return stat.StdDev(t.samples, nil)
}

// Reset implements Metric.
func (t *Temperature) Reset() { t.samples = t.samples[:0] }

// EnergyDrift tracks the largest relative deviation of total energy
// from its value after a configurable number of equilibration
// observations. The denominator is the system's energy scale
// |KE| + |PE| at the baseline, which stays meaningful when kinetic and
// potential terms nearly cancel.
type EnergyDrift struct {
	skip     int
	seen     int
	baseline float64
	scale    float64
	maxDrift float64
}

// NewEnergyDrift returns a drift tracker that baselines after skip
// observations.
func NewEnergyDrift(skip int) *EnergyDrift {
	return &EnergyDrift{skip: skip}
}

// Name implements Metric.
func (e *EnergyDrift) Name() string { return "energy_drift" }

// Observe implements Metric.
func (e *EnergyDrift) Observe(c *mdsys.Context) {
	ke := c.KineticEnergy()
	pe := c.PotentialEnergy(mdsys.AllGroups)
	total := ke + pe
	e.seen++
	if e.seen <= e.skip {
		return
	}
	if e.seen == e.skip+1 {
		e.baseline = total
		e.scale = math.Abs(ke) + math.Abs(pe)
		if e.scale == 0 {
			e.scale = 1
		}
		return
	}
	drift := math.Abs(total-e.baseline) / e.scale
	if drift > e.maxDrift {
		e.maxDrift = drift
	}
}

// Value returns the maximum observed relative drift.
func (e *EnergyDrift) Value() float64 { return e.maxDrift }

// Reset implements Metric.
func (e *EnergyDrift) Reset() {
	e.seen = 0
	e.baseline = 0
	e.scale = 0
	e.maxDrift = 0
}

// ConstraintViolation tracks the worst relative deviation of any
// constrained distance from its target.
type ConstraintViolation struct {
	max float64
}

// NewConstraintViolation returns an empty violation tracker.
func NewConstraintViolation() *ConstraintViolation { return &ConstraintViolation{} }

// Name implements Metric.
func (v *ConstraintViolation) Name() string { return "constraint_violation" }

// Observe implements Metric.
func (v *ConstraintViolation) Observe(c *mdsys.Context) {
	for _, con := range c.System().Constraints() {
		dist := r3.Norm(r3.Sub(c.Pos[con.J], c.Pos[con.I]))
		violation := math.Abs(dist-con.Distance) / con.Distance
		if violation > v.max {
			v.max = violation
		}
	}
}

// Value returns the worst observed relative violation.
func (v *ConstraintViolation) Value() float64 { return v.max }

// Reset implements Metric.
func (v *ConstraintViolation) Reset() { v.max = 0 }
