package practice

import "math/rand/v2"

// Rand is the slice of math/rand/v2 the shuffle needs. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Shuffle returns a uniformly random permutation of items (Fisher-Yates).
// The input slice is left untouched.
func Shuffle[T any](items []T, r Rand) []T {
	if r == nil {
		r = globalRand{}
	}
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
