package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/mdsim/internal/units"
)

// Configuration errors for thermostat chains.
var (
	ErrEmptySubset          = fmt.Errorf("integrators: thermostat bound to empty particle subset")
	ErrInvalidTemperature   = fmt.Errorf("integrators: thermostat temperature must be positive")
	ErrInvalidFrequency     = fmt.Errorf("integrators: thermostat coupling frequency must be positive")
	ErrInvalidChainLength   = fmt.Errorf("integrators: chain length must be positive")
	ErrInvalidLoopCount     = fmt.Errorf("integrators: chain loop count must be positive")
	ErrInvalidYoshidaSuzuki = fmt.Errorf("integrators: Yoshida-Suzuki order must be 1, 3, 5 or 7")
)

// Default chain configuration, matching common practice for
// Nose-Hoover chain thermostats.
const (
	DefaultChainLength   = 3
	DefaultChainLoops    = 3
	DefaultYoshidaSuzuki = 7
)

// yoshidaSuzukiWeights holds the symmetric splitting weights for the
// chain's own multi-time-step propagation.
var yoshidaSuzukiWeights = map[int][]float64{
	1: {1.0},
	3: {
		1.351207191959658, -1.702414383919316, 1.351207191959658,
	},
	5: {
		0.414490771794376, 0.414490771794376, -0.657963087177503,
		0.414490771794376, 0.414490771794376,
	},
	7: {
		0.784513610477560, 0.235573213359357, -1.17767998417887,
		1.31518632068391, -1.17767998417887, 0.235573213359357,
		0.784513610477560,
	},
}

// ThermostatChain is one Nose-Hoover chain: a ladder of auxiliary
// extended-Lagrangian variables coupled to the kinetic energy of a
// designated set of degrees of freedom. Propagating the chain yields a
// velocity-scaling factor for those degrees of freedom; the energy
// exchanged with the bath accumulates in the chain's auxiliary state
// and is queryable at any time.
type ThermostatChain struct {
	temperature float64
	frequency   float64
	ndf         int

	numMTS int
	numYS  int

	xi  []float64 // chain positions
	vxi []float64 // chain velocities
	q   []float64 // chain masses
}

// NewThermostatChain builds a chain at the target temperature (K) with
// coupling frequency (1/ps) over ndf degrees of freedom. depth is the
// chain length; numMTS and numYS control the chain's internal
// multi-time-step splitting.
func NewThermostatChain(temperature, frequency float64, ndf, depth, numMTS, numYS int) (*ThermostatChain, error) {
	switch {
	case temperature <= 0:
		return nil, fmt.Errorf("%w: %g K", ErrInvalidTemperature, temperature)
	case frequency <= 0:
		return nil, fmt.Errorf("%w: %g /ps", ErrInvalidFrequency, frequency)
	case ndf <= 0:
		return nil, fmt.Errorf("%w: %d degrees of freedom", ErrEmptySubset, ndf)
	case depth <= 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidChainLength, depth)
	case numMTS <= 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidLoopCount, numMTS)
	}
	if _, ok := yoshidaSuzukiWeights[numYS]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidYoshidaSuzuki, numYS)
	}

	kT := units.KB * temperature
	w2 := frequency * frequency
	q := make([]float64, depth)
	q[0] = float64(ndf) * kT / w2
	for i := 1; i < depth; i++ {
		q[i] = kT / w2
	}
	return &ThermostatChain{
		temperature: temperature,
		frequency:   frequency,
		ndf:         ndf,
		numMTS:      numMTS,
		numYS:       numYS,
		xi:          make([]float64, depth),
		vxi:         make([]float64, depth),
		q:           q,
	}, nil
}

// Temperature returns the chain's target temperature in K.
func (c *ThermostatChain) Temperature() float64 { return c.temperature }

// Frequency returns the coupling frequency in 1/ps.
func (c *ThermostatChain) Frequency() float64 { return c.frequency }

// DegreesOfFreedom returns the equipartition target DOF count.
func (c *ThermostatChain) DegreesOfFreedom() int { return c.ndf }

// Length returns the chain depth.
func (c *ThermostatChain) Length() int { return len(c.xi) }

// Propagate evolves the chain over an interval dt given twice the
// current kinetic energy of the coupled degrees of freedom, and returns
// the velocity-scaling factor to apply to them. The update is the
// reversible Martyna-Tuckerman-Klein scheme: numMTS outer loops over
// the Yoshida-Suzuki weights, each quarter-kicking the chain
// velocities, scaling the particle kinetic energy and drifting the
// chain positions.
func (c *ThermostatChain) Propagate(kineticEnergy2, dt float64) float64 {
	m := len(c.vxi)
	kT := units.KB * c.temperature
	g := make([]float64, m)
	g[0] = (kineticEnergy2 - float64(c.ndf)*kT) / c.q[0]
	for i := 1; i < m; i++ {
		g[i] = (c.q[i-1]*c.vxi[i-1]*c.vxi[i-1] - kT) / c.q[i]
	}

	scale := 1.0
	weights := yoshidaSuzukiWeights[c.numYS]
	for loop := 0; loop < c.numMTS; loop++ {
		for _, w := range weights {
			delta := w * dt / float64(c.numMTS)

			c.vxi[m-1] += 0.25 * delta * g[m-1]
			for j := m - 2; j >= 0; j-- {
				aa := math.Exp(-0.125 * delta * c.vxi[j+1])
				c.vxi[j] = c.vxi[j]*aa*aa + 0.25*delta*g[j]*aa
			}

			aa := math.Exp(-0.5 * delta * c.vxi[0])
			scale *= aa
			kineticEnergy2 *= aa * aa
			g[0] = (kineticEnergy2 - float64(c.ndf)*kT) / c.q[0]

			for j := 0; j < m; j++ {
				c.xi[j] += 0.5 * delta * c.vxi[j]
			}

			for j := 0; j < m-1; j++ {
				aa := math.Exp(-0.125 * delta * c.vxi[j+1])
				c.vxi[j] = c.vxi[j]*aa*aa + 0.25*delta*g[j]*aa
				g[j+1] = (c.q[j]*c.vxi[j]*c.vxi[j] - kT) / c.q[j+1]
			}
			c.vxi[m-1] += 0.25 * delta * g[m-1]
		}
	}
	return scale
}

// HeatBathEnergy returns the energy stored in the chain's auxiliary
// variables: kinetic energy of the chain plus the potential of each
// link. It accumulates over the run and is never reset implicitly; a
// zero value after coupled dynamics means the chain never engaged.
func (c *ThermostatChain) HeatBathEnergy() float64 {
	kT := units.KB * c.temperature
	e := 0.0
	for i := range c.vxi {
		e += 0.5 * c.q[i] * c.vxi[i] * c.vxi[i]
	}
	e += float64(c.ndf) * kT * c.xi[0]
	for i := 1; i < len(c.xi); i++ {
		e += kT * c.xi[i]
	}
	return e
}
