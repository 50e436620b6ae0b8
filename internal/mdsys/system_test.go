package mdsys

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

type stubForce struct {
	groups []int
	energy float64
}

func (s *stubForce) Groups() []int { return s.groups }

func (s *stubForce) AddForces(pos []r3.Vec, f []r3.Vec, mask GroupMask) float64 {
	for _, g := range s.groups {
		if mask.Contains(g) {
			return s.energy
		}
	}
	return 0
}

func TestGroupMask(t *testing.T) {
	m := MaskFor(0) | MaskFor(5)
	if !m.Contains(0) || !m.Contains(5) {
		t.Fatal("mask misses its own groups")
	}
	if m.Contains(1) {
		t.Fatal("mask contains group 1")
	}
	if m.Contains(-1) || m.Contains(32) {
		t.Fatal("out-of-range group reported present")
	}
	if !AllGroups.Contains(31) {
		t.Fatal("AllGroups misses group 31")
	}
}

func TestForceGroups(t *testing.T) {
	sys := NewSystem()
	sys.AddForce(&stubForce{groups: []int{0}})
	sys.AddForce(&stubForce{groups: []int{1, 2}})

	m := sys.ForceGroups()
	for g := 0; g < 3; g++ {
		if !m.Contains(g) {
			t.Errorf("group %d missing from mask", g)
		}
	}
	if m.Contains(3) {
		t.Error("phantom group 3")
	}
}

func TestDegreesOfFreedom(t *testing.T) {
	tests := []struct {
		name        string
		masses      []float64
		constraints int
		want        int
	}{
		{"single particle", []float64{12}, 0, 3},
		{"two particles", []float64{12, 12}, 0, 3},
		{"two constrained", []float64{12, 12}, 1, 2},
		{"virtual site ignored", []float64{12, 0, 12}, 0, 3},
		{"eight with five constraints", []float64{5, 10, 5, 10, 5, 10, 5, 10}, 5, 16},
		{"empty", nil, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := NewSystem()
			for _, m := range tt.masses {
				sys.AddParticle(m)
			}
			for i := 0; i < tt.constraints; i++ {
				sys.AddConstraint(i, i+1, 1.0)
			}
			if got := sys.DegreesOfFreedom(); got != tt.want {
				t.Fatalf("DegreesOfFreedom() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInvMass(t *testing.T) {
	sys := NewSystem()
	sys.AddParticle(4)
	sys.AddParticle(0)
	if sys.InvMass(0) != 0.25 {
		t.Errorf("InvMass(0) = %g", sys.InvMass(0))
	}
	if sys.InvMass(1) != 0 {
		t.Errorf("virtual site InvMass = %g, want 0", sys.InvMass(1))
	}
}

func TestDrudePairs(t *testing.T) {
	sys := NewSystem()
	core := sys.AddParticle(15.6)
	shell := sys.AddParticle(0.4)
	sys.AddDrudePair(core, shell)
	pairs := sys.DrudePairs()
	if len(pairs) != 1 || pairs[0].Core != core || pairs[0].Shell != shell {
		t.Fatalf("pairs = %v", pairs)
	}
}
