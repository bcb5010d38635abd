package sstv

import (
	"sync/atomic"
	"time"
)

// Emitter is a continuous tone generator. A frequency stays on air until
// the next call.
type Emitter interface {
	SetFrequency(hz uint32)
	Silence()
}

// Clock is a monotonic microsecond-resolution time source.
type Clock interface {
	// Now returns the time elapsed since the clock's epoch.
	Now() time.Duration
	// Hold returns once d has elapsed, measured from the call.
	Hold(d time.Duration)
}

// spinThreshold is how long before a deadline Hold stops sleeping and
// starts spinning.
const spinThreshold = 2 * time.Millisecond

// WallClock is a Clock backed by the runtime's monotonic clock.
type WallClock struct {
	epoch time.Time
}

// NewWallClock returns a WallClock whose epoch is now.
func NewWallClock() *WallClock {
	return &WallClock{epoch: time.Now()}
}

func (c *WallClock) Now() time.Duration {
	return time.Since(c.epoch)
}

// Hold sleeps for the bulk of d and busy-waits the remainder so pulse
// edges land within a few microseconds of the deadline.
func (c *WallClock) Hold(d time.Duration) {
	start := time.Now()
	if d > spinThreshold {
		time.Sleep(d - spinThreshold)
	}
	for time.Since(start) < d {
	}
}

// VirtualClock is a simulated clock. Holding advances it instantly, which
// lets a whole transmission be rendered faster than real time.
type VirtualClock struct {
	now atomic.Int64
}

func (c *VirtualClock) Now() time.Duration {
	return time.Duration(c.now.Load())
}

func (c *VirtualClock) Hold(d time.Duration) {
	c.Advance(d)
}

// Advance moves the clock forward by d.
func (c *VirtualClock) Advance(d time.Duration) {
	c.now.Add(int64(d))
}
