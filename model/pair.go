package model

import (
	"fmt"
	"math"
)

// PairKind is the functional form of a pair interaction.
type PairKind int

const (
	// Gaussian is an attractive gaussian well.
	Gaussian PairKind = iota
	// LJ12Gaussian is a gaussian well with a fixed r^-12
	// excluded-volume wall.
	LJ12Gaussian
	// LJ1210 is a 12-10 Lennard-Jones contact.
	LJ1210
)

// PairKindFromString returns a pair kind from its name in the pairs
// file.
func PairKindFromString(s string) (PairKind, error) {
	switch s {
	case "gaussian":
		return Gaussian, nil
	case "lj12gaussian":
		return LJ12Gaussian, nil
	case "lj1210":
		return LJ1210, nil
	}
	return 0, fmt.Errorf("unknown pair kind: %s", s)
}

// String returns the pair kind name.
func (k PairKind) String() string {
	switch k {
	case Gaussian:
		return "gaussian"
	case LJ12Gaussian:
		return "lj12gaussian"
	case LJ1210:
		return "lj1210"
	}
	return "unknown"
}

// Pair is a single pairwise interaction of the coarse-grained
// Hamiltonian. The potential is linear in Epsilon for all supported
// kinds: V(r) = const(r) + Epsilon * dVdEps(r).
type Pair struct {
	// I and J are bead indices (zero based).
	I, J int
	// Kind is the functional form.
	Kind PairKind
	// R0 is the minimum location (native distance).
	R0 float64
	// Width is the gaussian well width.
	Width float64
	// Epsilon is the interaction strength.
	Epsilon float64
}

// DVDEps returns the derivative of the pair potential with respect to
// epsilon at distance r. For a pairwise-linear Hamiltonian this is the
// constant prefactor of epsilon.
func (p *Pair) DVDEps(r float64) float64 {
	switch p.Kind {
	case Gaussian, LJ12Gaussian:
		// the excluded-volume wall of lj12gaussian does not
		// depend on epsilon
		d := r - p.R0
		return -math.Exp(-d * d / (2 * p.Width * p.Width))
	case LJ1210:
		q := p.R0 / r
		q2 := q * q
		q10 := q2 * q2 * q2 * q2 * q2
		return 5*q10*q2 - 6*q10
	}
	panic("unknown pair kind")
}
