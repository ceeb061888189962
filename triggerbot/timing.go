package triggerbot

import (
	"math/rand/v2"
	"time"
)

// Clock is the time source of the run loop. Now must be monotonic.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Rand produces the jitter of the reaction delays.
type Rand interface {
	// Uint32N returns a value in [0, n)
	Uint32N(n uint32) uint32
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

func newRand() Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// spinWait busy-waits for d. Sleeping is too coarse for the reaction timing.
func spinWait(c Clock, d time.Duration) {
	start := c.Now()
	for c.Now().Sub(start) < d {
	}
}

// randomDelay returns a delay in [from, to] with microsecond granularity.
func randomDelay(r Rand, from, to time.Duration) time.Duration {
	lo := uint32(from / time.Microsecond)
	hi := uint32(to / time.Microsecond)
	if hi <= lo {
		return from
	}
	return time.Duration(lo+r.Uint32N(hi-lo+1)) * time.Microsecond
}
