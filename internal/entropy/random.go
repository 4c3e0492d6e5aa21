// Package entropy derives all simulation randomness from a run's
// reproducibility key. Nothing here reads the clock or the OS entropy pool:
// the same key always produces the same streams.
package entropy

import (
	"math/rand"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/ojrac/opensimplex-go"
)

// Seed hashes "<key>-<month>" into a 64-bit PRNG seed.
func Seed(key string, month int) int64 {
	return int64(xxhash.Sum64String(key + "-" + strconv.Itoa(month)))
}

// NewRand returns a PRNG for one month of one run.
func NewRand(key string, month int) *rand.Rand {
	return rand.New(rand.NewSource(Seed(key, month)))
}

// Growth maps milestone months to raise percentages along a smooth
// OpenSimplex curve, so consecutive raises for a run are correlated rather
// than independent coin flips.
type Growth struct {
	noise opensimplex.Noise
	min   float64
	max   float64
}

// NewGrowth builds a raise curve for key with rates in [min, max].
func NewGrowth(key string, min, max float64) *Growth {
	if max < min {
		min, max = max, min
	}
	return &Growth{
		noise: opensimplex.NewNormalized(Seed(key, -1)),
		min:   min,
		max:   max,
	}
}

// Rate returns the raise for the given month.
func (g *Growth) Rate(month int) float64 {
	v := g.noise.Eval2(float64(month)*0.37, 0.5)
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return g.min + (g.max-g.min)*v
}
