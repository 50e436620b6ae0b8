package analysis

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// streamingFrames produces frames of particles moving at constant
// velocities, sampled every dt.
func streamingFrames(vels []r3.Vec, nframes int, dt float64) [][]r3.Vec {
	frames := make([][]r3.Vec, nframes)
	for t := 0; t < nframes; t++ {
		frame := make([]r3.Vec, len(vels))
		for i, v := range vels {
			frame[i] = r3.Scale(float64(t)*dt, v)
		}
		frames[t] = frame
	}
	return frames
}

func TestMeanSquareDisplacementBallistic(t *testing.T) {
	vels := []r3.Vec{{X: 1}, {Y: 2}, {Z: -1}}
	dt := 0.1
	frames := streamingFrames(vels, 10, dt)

	msd := MeanSquareDisplacement(frames)
	if len(msd) != 10 {
		t.Fatalf("got %d points", len(msd))
	}
	if msd[0] != 0 {
		t.Fatalf("msd[0] = %g", msd[0])
	}
	// <v²> = (1 + 4 + 1)/3 = 2, so MSD(t) = 2 t².
	for i, got := range msd {
		tt := float64(i) * dt
		want := 2 * tt * tt
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("msd[%d] = %g, want %g", i, got, want)
		}
	}
}

func TestMeanSquareDisplacementEmpty(t *testing.T) {
	if msd := MeanSquareDisplacement(nil); msd != nil {
		t.Fatalf("got %v for no frames", msd)
	}
}

func TestVelocityAutocorrelationConstantVelocity(t *testing.T) {
	vels := []r3.Vec{{X: 1, Y: -1}, {Z: 2}}
	frames := make([][]r3.Vec, 5)
	for t := range frames {
		frames[t] = append([]r3.Vec(nil), vels...)
	}
	vacf := VelocityAutocorrelation(frames)
	for i, v := range vacf {
		if math.Abs(v-1) > 1e-12 {
			t.Errorf("vacf[%d] = %g, want 1", i, v)
		}
	}
}

func TestVelocityAutocorrelationSignFlip(t *testing.T) {
	frames := [][]r3.Vec{
		{{X: 1}},
		{{X: -1}},
	}
	vacf := VelocityAutocorrelation(frames)
	if vacf[0] != 1 || vacf[1] != -1 {
		t.Fatalf("vacf = %v, want [1 -1]", vacf)
	}
}

func TestVelocityAutocorrelationAtRest(t *testing.T) {
	frames := [][]r3.Vec{{{}}, {{}}}
	vacf := VelocityAutocorrelation(frames)
	for i, v := range vacf {
		if v != 0 {
			t.Errorf("vacf[%d] = %g for motionless frames", i, v)
		}
	}
}

func TestSelfDiffusionFromLinearMSD(t *testing.T) {
	const (
		d  = 0.5 // nm²/ps
		dt = 0.01
	)
	msd := make([]float64, 100)
	for i := range msd {
		msd[i] = 6 * d * float64(i) * dt
	}
	got := SelfDiffusion(msd, dt)
	if math.Abs(got-d)/d > 1e-9 {
		t.Fatalf("D = %g, want %g", got, d)
	}
}

func TestSelfDiffusionTooShort(t *testing.T) {
	if got := SelfDiffusion([]float64{0}, 0.1); got != 0 {
		t.Fatalf("D = %g for a single-point series", got)
	}
}
