// Package analysis computes transport observables from sampled
// trajectory frames: mean-square displacement, velocity
// autocorrelation and the self-diffusion coefficient.
package analysis

import (
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// MeanSquareDisplacement returns the particle-averaged squared
// displacement of each frame relative to the first, in nm².
func MeanSquareDisplacement(frames [][]r3.Vec) []float64 {
	if len(frames) == 0 {
		return nil
	}
	ref := frames[0]
	msd := make([]float64, len(frames))
	for t, frame := range frames {
		sum := 0.0
		for i := range frame {
			sum += r3.Norm2(r3.Sub(frame[i], ref[i]))
		}
		msd[t] = sum / float64(len(frame))
	}
	return msd
}

// VelocityAutocorrelation returns the normalized particle-averaged
// velocity autocorrelation C(t) = <v(0)·v(t)> / <v(0)·v(0)> for each
// frame lag relative to the first frame.
func VelocityAutocorrelation(frames [][]r3.Vec) []float64 {
	if len(frames) == 0 {
		return nil
	}
	ref := frames[0]
	norm := 0.0
	for i := range ref {
		norm += r3.Norm2(ref[i])
	}
	vacf := make([]float64, len(frames))
	if norm == 0 {
		return vacf
	}
	for t, frame := range frames {
		sum := 0.0
		for i := range frame {
			sum += r3.Dot(ref[i], frame[i])
		}
		vacf[t] = sum / norm
	}
	return vacf
}

// SelfDiffusion estimates the diffusion coefficient (nm²/ps) from an
// MSD series sampled every dt: the Einstein relation D = slope/6, with
// the slope from a least-squares fit over the series tail (the first
// third is discarded as ballistic).
func SelfDiffusion(msd []float64, dt float64) float64 {
	start := len(msd) / 3
	if len(msd)-start < 2 {
		return 0
	}
	times := make([]float64, len(msd)-start)
	values := make([]float64, len(msd)-start)
	for i := range times {
		times[i] = float64(start+i) * dt
		values[i] = msd[start+i]
	}
	_, slope := stat.LinearRegression(times, values, nil, false)
	return slope / 6
}
