package flowopt

import "math/rand"

// Rand is the random number source used throughout the module.  Reseed it
// via SetSeed (or swap it entirely) before building populations to make a
// run reproducible.
var Rand Rng = rand.New(rand.NewSource(1))

type Rng interface {
	Float64() float64
}

func SetSeed(seed int64) {
	Rand = rand.New(rand.NewSource(seed))
}

// RandFloat returns a uniform random number in [0, 1).
func RandFloat() float64 { return Rand.Float64() }
