// Package units fixes the unit conventions used throughout mdsim:
// lengths in nanometers, times in picoseconds, masses in atomic mass
// units and energies in kJ/mol. With these choices velocities come out
// in nm/ps and forces in kJ/(mol·nm) with no conversion factors in the
// equations of motion.
package units

const (
	// KB is the molar gas constant in kJ/(mol·K). Multiplying by a
	// temperature gives kT in the simulation energy unit.
	KB = 8.31446261815324e-3

	// CoulombConstant is 1/(4·pi·eps0) in kJ·nm/(mol·e²).
	CoulombConstant = 138.935457644382
)
