package scheduler

import (
	"math/rand/v2"
	"sync"
)

// RandomSource supplies the jitter and offsets used by the strategies.
// Implementations must be safe for concurrent use.
type RandomSource interface {
	// Int64N returns a value in [0, n). n is always positive.
	Int64N(n int64) int64
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomSource returns a deterministic source for the given seed.
func NewRandomSource(seed uint64) RandomSource {
	return &lockedSource{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *lockedSource) Int64N(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Int64N(n)
}

// int64n guards against non-positive bounds.
func int64n(src RandomSource, n int64) int64 {
	if n <= 0 {
		return 0
	}
	return src.Int64N(n)
}
