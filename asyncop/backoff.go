package asyncop

import (
	"math"
	"time"
)

// Backoff computes the wait before the next attempt. The attempt parameter is
// the zero-indexed attempt that just failed.
type Backoff interface {
	Delay(attempt uint) time.Duration
}

// LinearBackoff waits Base*(attempt+1): with Base 1s the waits are 1s, 2s, 3s...
// A positive Max caps the delay.
type LinearBackoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b LinearBackoff) Delay(attempt uint) time.Duration {
	if b.Base <= 0 {
		return 0
	}

	d := b.Base * time.Duration(attempt+1)
	if b.Max > 0 && d > b.Max {
		return b.Max
	}

	return d
}

// ExpBackoff grows the delay as Base * Factor^attempt, clamped between Base and Max.
//
//	backoff := asyncop.ExpBackoff{
//	    Base:   100 * time.Millisecond,
//	    Max:    10 * time.Second,
//	    Factor: 2.0,
//	}
//	// Delays: 100ms, 200ms, 400ms, 800ms, 1.6s, 3.2s, 6.4s, 10s, 10s, ...
type ExpBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

func (b ExpBackoff) Delay(attempt uint) time.Duration {
	f := float64(b.Base) * math.Pow(b.Factor, float64(attempt))

	d := time.Duration(f)
	if d < b.Base {
		return b.Base
	} else if b.Max > 0 && d > b.Max {
		return b.Max
	}

	return d
}
