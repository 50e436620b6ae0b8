// Package integrators implements the time-integration core: nested
// multiple-time-step velocity Verlet ([MTSIntegrator]), its Langevin
// composition ([MTSLangevinIntegrator]) and Nose-Hoover chain
// thermostatting ([NoseHooverIntegrator], [DrudeNoseHooverIntegrator]).
//
// Force evaluation, constraint projection and the particle state all
// live behind the mdsys context; the integrators only decide when each
// force group is evaluated and how velocities are kicked, drifted,
// scaled and randomized.
//
// Every integrator validates its configuration at construction or on
// first use, before mutating any particle state. Within one step the
// stage order is strict and sequential; the numerical trajectory
// depends on it.
package integrators
