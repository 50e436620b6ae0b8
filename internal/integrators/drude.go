package integrators

import (
	"github.com/san-kum/mdsim/internal/mdsys"
)

// DrudeNoseHooverIntegrator thermostats a polarizable (core-shell)
// system with exactly two Nose-Hoover chains: a "real" chain over
// center-of-mass-bearing degrees of freedom at the simulation
// temperature, and a "Drude" chain over core-shell relative
// displacements at a near-zero temperature with a stiffer coupling, so
// induced dipoles stay cold while the real atoms thermalize.
//
// The core-shell pair list comes from the bound system
// (System.AddDrudePair); each step the pair velocities are split into
// center-of-mass and relative coordinates, thermostated independently
// and reconstituted.
type DrudeNoseHooverIntegrator struct {
	nh *NoseHooverIntegrator

	temperature      float64
	frequency        float64
	drudeTemperature float64
	drudeFrequency   float64
}

// NewDrudeNoseHooverIntegrator creates the two-temperature integrator:
// temperature/frequency for real motion, drudeTemperature (typically
// ~1 K) and drudeFrequency (typically an order of magnitude stiffer)
// for core-shell relative motion, with macro timestep dt (ps).
func NewDrudeNoseHooverIntegrator(temperature, frequency, drudeTemperature, drudeFrequency, dt float64) *DrudeNoseHooverIntegrator {
	return &DrudeNoseHooverIntegrator{
		nh:               NewNoseHooverIntegrator(dt),
		temperature:      temperature,
		frequency:        frequency,
		drudeTemperature: drudeTemperature,
		drudeFrequency:   drudeFrequency,
	}
}

// Temperature returns the real-motion target temperature in K.
func (d *DrudeNoseHooverIntegrator) Temperature() float64 { return d.temperature }

// DrudeTemperature returns the core-shell relative-motion target in K.
func (d *DrudeNoseHooverIntegrator) DrudeTemperature() float64 { return d.drudeTemperature }

// StepSize returns the macro timestep in ps.
func (d *DrudeNoseHooverIntegrator) StepSize() float64 { return d.nh.StepSize() }

// ConstraintTolerance returns the relative constraint tolerance.
func (d *DrudeNoseHooverIntegrator) ConstraintTolerance() float64 {
	return d.nh.ConstraintTolerance()
}

// SetConstraintTolerance overrides the relative constraint tolerance.
func (d *DrudeNoseHooverIntegrator) SetConstraintTolerance(tol float64) {
	d.nh.SetConstraintTolerance(tol)
}

// Chains returns the two materialized chains (real first). Empty until
// the first step binds to a system.
func (d *DrudeNoseHooverIntegrator) Chains() []*ThermostatChain { return d.nh.Chains() }

// HeatBathEnergy returns the summed auxiliary-variable energy of both
// chains.
func (d *DrudeNoseHooverIntegrator) HeatBathEnergy() float64 { return d.nh.HeatBathEnergy() }

// Step advances the context by the given number of macro steps. On
// first use it registers the single whole-system two-temperature
// thermostat; configuration errors surface here, before any state
// mutation.
func (d *DrudeNoseHooverIntegrator) Step(c *mdsys.Context, steps int) error {
	if len(d.nh.specs) == 0 {
		err := d.nh.addSpec(thermostatSpec{
			allParticles: true,
			systemPairs:  true,
			temperature:  d.temperature,
			frequency:    d.frequency,
			relTemp:      d.drudeTemperature,
			relFrequency: d.drudeFrequency,
			chainLength:  DefaultChainLength,
			numMTS:       DefaultChainLoops,
			numYS:        DefaultYoshidaSuzuki,
		})
		if err != nil {
			return err
		}
	}
	return d.nh.Step(c, steps)
}
