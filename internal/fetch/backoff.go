package fetch

import (
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newBackOff builds the exponential-with-jitter schedule from spec.md
// §4.1, reusing cenkalti/backoff/v4's ExponentialBackOff rather than
// hand-rolling the math.
func newBackOff(o Options) *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = o.InitialBackoff
	eb.Multiplier = o.Multiplier
	eb.MaxInterval = o.MaxBackoff
	eb.RandomizationFactor = o.JitterFraction
	eb.MaxElapsedTime = 0 // bounded by our own attempt counter, not elapsed time
	eb.Reset()
	return eb
}

// jitter returns base shifted by a random amount within ±fraction of it.
// Nothing in the repository calls it: Fetch gets its jitter from
// newBackOff, and C6's unbounded backoff uses a fixed increment schedule
// without jitter (see internal/searchindex).
func jitter(base time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return base
	}
	delta := float64(base) * fraction
	return base + time.Duration(rand.Float64()*2*delta-delta)
}
