package wfc

import (
	"math/rand"
	"time"
)

// RandomSource is the seedable generator threaded through a solve
type RandomSource interface {
	Reseed(seed int64)
	Intn(n int) int
}

// Random is the default RandomSource backed by math/rand
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a Random seeded with seed
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Reseed restarts the sequence from seed
func (r *Random) Reseed(seed int64) {
	r.rng.Seed(seed)
}

// Intn returns a uniform integer in [0, n). It panics if n <= 0.
func (r *Random) Intn(n int) int {
	return r.rng.Intn(n)
}

// SeedUnset is the configured seed value that asks for a fresh seed per attempt
const SeedUnset int64 = 0

// ResolveSeed returns configured unless it is SeedUnset, in which case a
// time-derived seed is used.
func ResolveSeed(configured int64) int64 {
	if configured != SeedUnset {
		return configured
	}
	seed := time.Now().UnixNano()
	if seed == SeedUnset {
		seed = 1
	}
	return seed
}
