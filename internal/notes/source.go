package notes

import "math/rand/v2"

// Source supplies the randomness a Generator draws from.
// *rand.Rand satisfies it.
type Source interface {
	// IntN returns a uniform int in [0, n).
	IntN(n int) int
	// Float64 returns a uniform float64 in [0.0, 1.0).
	Float64() float64
}

// NewSource returns a per-instance PCG source. A zero seed is replaced by one
// drawn from the runtime, so those runs are not reproducible.
func NewSource(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// between returns a uniform int in [lo, hi].
func between(r Source, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}
