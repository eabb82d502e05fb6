// Package rng builds seedable pseudo-random generators and the sampling
// helpers used by the perturbation engine and the classifier split.
//
// Every helper takes the generator explicitly. Nothing in this module draws
// from the package-level math/rand source; see pkg/linter/globalrand.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// streamSalt separates the two PCG words derived from one seed.
const streamSalt = 0x9e3779b97f4a7c15

// New returns a deterministic generator for seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^streamSalt))
}

// Seed returns a fresh seed from crypto/rand.
func Seed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("failed to read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Int returns a uniform integer in the inclusive range [min, max].
func Int(r *rand.Rand, min, max int64) (int64, error) {
	if max < min {
		return 0, fmt.Errorf("max must not be less than min (got min=%d, max=%d)", min, max)
	}
	if min == max {
		return min, nil
	}
	span := uint64(max - min)
	if span == math.MaxUint64 {
		return int64(r.Uint64()), nil
	}
	return min + int64(r.Uint64N(span+1)), nil
}

// Sample picks k distinct indices from [0, n) uniformly without replacement
// and returns them in ascending order.
func Sample(r *rand.Rand, n, k int) ([]int, error) {
	if n < 0 || k < 0 || k > n {
		return nil, fmt.Errorf("invalid sample of %d from %d", k, n)
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	// Partial Fisher-Yates: the first k slots end up holding the sample.
	for i := 0; i < k; i++ {
		j := i + r.IntN(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	picked := pool[:k]
	sort.Ints(picked)
	return picked, nil
}

// Normal returns a Gaussian draw with the given mean and standard deviation.
func Normal(r *rand.Rand, mean, stddev float64) float64 {
	return mean + r.NormFloat64()*stddev
}

// Shuffle permutes n elements in place through swap.
func Shuffle(r *rand.Rand, n int, swap func(i, j int)) {
	if n <= 1 {
		return
	}
	r.Shuffle(n, swap)
}
