// Package random provides the randomness source injected into the game algorithms.
package random

import (
	"math/rand/v2"
	"sync"
)

// Source is the randomness the game draws from.
// *rand.Rand from math/rand/v2 satisfies it, but is not safe for concurrent use.
type Source interface {
	IntN(n int) int
	Float64() float64
}

// Locked is a Source safe for concurrent use by many command handlers.
type Locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a concurrency-safe source seeded from the runtime's random state.
func New() *Locked {
	return Seeded(rand.Uint64(), rand.Uint64())
}

// Seeded returns a concurrency-safe PCG source with a fixed seed.
func Seeded(seed1, seed2 uint64) *Locked {
	return &Locked{r: rand.New(rand.NewPCG(seed1, seed2))}
}

// IntN returns a uniform int in [0, n). It panics if n <= 0.
func (l *Locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Float64 returns a uniform float64 in [0.0, 1.0).
func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// Between returns a uniform int64 in [lo, hi]. If hi < lo it returns lo.
func Between(src Source, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + int64(src.IntN(int(hi-lo+1)))
}
