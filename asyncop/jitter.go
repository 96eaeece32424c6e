package asyncop

import (
	"math/rand"
	"time"
)

// Jitter randomizes backoff delays:
//   - negative or 0.0: exact delay
//   - 0.5: half fixed, half random
//   - 1.0: uniformly random in [0, delay)
type Jitter float64

const (
	EqualJitter   Jitter = 0.5
	FullJitter    Jitter = 1.0
	WithoutJitter Jitter = -1.0
)

func (j Jitter) apply(d time.Duration) time.Duration {
	if j <= 0.0 || d <= 0 {
		return d
	}

	//nolint:gosec // G404: math/rand is sufficient for jitter
	r := rand.Float64() * float64(d)

	if j < 1.0 {
		r = float64(j)*r + float64(1.0-j)*float64(d)
	}

	return time.Duration(r)
}
