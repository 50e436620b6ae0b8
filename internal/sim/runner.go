// Package sim drives an integrator over a context for a configured
// number of steps, sampling metrics and observers at a report interval.
package sim

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mdsim/internal/mdsys"
	"github.com/san-kum/mdsim/internal/metrics"
)

// Observer is notified once per report interval.
type Observer interface {
	OnSample(c *mdsys.Context, step int)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(c *mdsys.Context, step int)

// OnSample implements Observer.
func (f ObserverFunc) OnSample(c *mdsys.Context, step int) { f(c, step) }

// Config controls a run.
type Config struct {
	Steps            int
	ReportEvery      int
	RecordPositions  bool
	RecordVelocities bool
}

// Result collects per-sample series and final metric values.
type Result struct {
	Times       []float64
	Kinetic     []float64
	Potential   []float64
	Temperature []float64
	Positions   [][]r3.Vec
	Velocities  [][]r3.Vec
	Metrics     map[string]float64
	StepsTaken  int
}

// Runner owns one context/integrator pair plus its metrics and
// observers.
type Runner struct {
	sim       *mdsys.Context
	integ     mdsys.Integrator
	metrics   []metrics.Metric
	observers []Observer
}

// New creates a runner.
func New(c *mdsys.Context, integ mdsys.Integrator) *Runner {
	return &Runner{sim: c, integ: integ}
}

// AddMetric registers a metric sampled every report interval.
func (r *Runner) AddMetric(m metrics.Metric) { r.metrics = append(r.metrics, m) }

// AddObserver registers an observer called every report interval.
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

// Context returns the simulated context.
func (r *Runner) Context() *mdsys.Context { return r.sim }

func (r *Runner) validate(cfg Config) error {
	if cfg.Steps <= 0 {
		return fmt.Errorf("sim: steps must be positive, got %d", cfg.Steps)
	}
	if cfg.ReportEvery <= 0 {
		return fmt.Errorf("sim: report interval must be positive, got %d", cfg.ReportEvery)
	}
	return nil
}

// Run advances the integrator cfg.Steps steps, sampling every
// cfg.ReportEvery steps. It honors ctx cancellation between report
// intervals and returns whatever was collected along with the error.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := r.validate(cfg); err != nil {
		return nil, err
	}
	for _, m := range r.metrics {
		m.Reset()
	}

	samples := cfg.Steps/cfg.ReportEvery + 1
	result := &Result{
		Times:       make([]float64, 0, samples),
		Kinetic:     make([]float64, 0, samples),
		Potential:   make([]float64, 0, samples),
		Temperature: make([]float64, 0, samples),
		Metrics:     make(map[string]float64),
	}

	r.sample(result, cfg, 0)
	for done := 0; done < cfg.Steps; {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		chunk := cfg.ReportEvery
		if remaining := cfg.Steps - done; chunk > remaining {
			chunk = remaining
		}
		if err := r.integ.Step(r.sim, chunk); err != nil {
			return result, err
		}
		done += chunk
		result.StepsTaken = done
		r.sample(result, cfg, done)
	}

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}

func (r *Runner) sample(result *Result, cfg Config, step int) {
	result.Times = append(result.Times, r.sim.Time())
	result.Kinetic = append(result.Kinetic, r.sim.KineticEnergy())
	result.Potential = append(result.Potential, r.sim.PotentialEnergy(mdsys.AllGroups))
	result.Temperature = append(result.Temperature, r.sim.Temperature())
	if cfg.RecordPositions {
		frame := make([]r3.Vec, len(r.sim.Pos))
		copy(frame, r.sim.Pos)
		result.Positions = append(result.Positions, frame)
	}
	if cfg.RecordVelocities {
		frame := make([]r3.Vec, len(r.sim.Vel))
		copy(frame, r.sim.Vel)
		result.Velocities = append(result.Velocities, frame)
	}
	for _, m := range r.metrics {
		m.Observe(r.sim)
	}
	for _, o := range r.observers {
		o.OnSample(r.sim, step)
	}
}
