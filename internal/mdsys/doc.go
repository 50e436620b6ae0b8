// Package mdsys provides the simulation context that integrators
// operate on: a [System] describing particles, forces, constraints and
// Drude pairs, and a [Context] holding positions, velocities and cached
// force evaluations.
//
// Force evaluation is partitioned by force group so that integrators
// can evaluate cheap and expensive terms at different frequencies:
//
//	forces, energy := ctx.GroupForces(0)
//
// The context treats force kernels and constraint projection as opaque
// collaborators; the integrators in internal/integrators consume them
// through [Context.Forces] and [Context.ApplyConstraints].
package mdsys
