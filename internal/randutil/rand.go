package randutil

import rand "math/rand/v2"

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// DeckStream returns the stream the dealers shuffle with. It is derived from
// the base seed alone so every dealer continues the same sequence.
func DeckStream(base int64) *rand.Rand {
	return New(base)
}

// ParticipantStream returns the private stream of participant id. Streams are
// offset from the base seed by id+1 so none of them collides with the deck.
func ParticipantStream(base int64, id int) *rand.Rand {
	return New(base + int64(id) + 1)
}

// Between returns a uniform value in [lo, hi].
func Between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
