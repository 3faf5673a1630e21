package office

import (
	"math/rand"
	"time"
)

// RandomOracle draws a duration uniformly from [min, max] using the
// package-level math/rand source. It is the production DurationOracle;
// tests substitute MidpointOracle for determinism (spec.md §8's
// fixed-seed scenarios).
type RandomOracle struct{}

// Sample returns a uniformly distributed duration in [min, max].
func (RandomOracle) Sample(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min+1)))
}
