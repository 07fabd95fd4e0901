package network

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/born-ml/convnet/internal/nn"
)

// Sampler decides which samples one pass over a dataset visits.
type Sampler interface {
	// Draw returns count indices in [0, size).
	Draw(size, count int) []int
}

// SamplerKind names a Sampler.
type SamplerKind string

// Sampling policies.
const (
	// RandomWithReplacement draws every index independently and uniformly.
	// A pass may visit some samples several times and skip others.
	RandomWithReplacement SamplerKind = "random"

	// Shuffled visits a fresh permutation of the dataset, so a pass of
	// size draws sees every sample exactly once.
	Shuffled SamplerKind = "shuffled"
)

// ParseSamplerKind accepts "random" or "shuffled". An empty string selects
// RandomWithReplacement.
func ParseSamplerKind(name string) (SamplerKind, error) {
	switch k := SamplerKind(strings.ToLower(name)); k {
	case "":
		return RandomWithReplacement, nil
	case RandomWithReplacement, Shuffled:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown sampler %q", nn.ErrConfiguration, name)
	}
}

// NewSampler builds the sampler of the given kind drawing from rng.
func NewSampler(kind SamplerKind, rng *rand.Rand) Sampler {
	if kind == Shuffled {
		return &shuffledSampler{rng: rng}
	}
	return &replacementSampler{rng: rng}
}

type replacementSampler struct {
	rng *rand.Rand
}

func (s *replacementSampler) Draw(size, count int) []int {
	indices := make([]int, count)
	if size <= 0 {
		return indices[:0]
	}
	for i := range indices {
		indices[i] = s.rng.IntN(size)
	}
	return indices
}

type shuffledSampler struct {
	rng *rand.Rand
}

// Draw concatenates permutations until count indices are collected.
func (s *shuffledSampler) Draw(size, count int) []int {
	indices := make([]int, 0, count)
	if size <= 0 {
		return indices
	}
	for len(indices) < count {
		perm := s.rng.Perm(size)
		indices = append(indices, perm[:min(size, count-len(indices))]...)
	}
	return indices
}
