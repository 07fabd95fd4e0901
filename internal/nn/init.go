package nn

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
)

// NewRand returns a generator seeded with seed. A zero seed draws a random
// one, so unseeded networks differ from run to run.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Xavier (Glorot) initialization for weights.
//
// Fills a new slice of n values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// This initialization helps maintain variance of activations across layers.
func Xavier(rng *rand.Rand, fanIn, fanOut, n int) []float32 {
	bound := math32.Sqrt(6.0 / float32(fanIn+fanOut))
	data := make([]float32, n)
	for i := range data {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		data[i] = (rng.Float32()*2.0 - 1.0) * bound
	}
	return data
}
