package tone

import (
	"sync/atomic"
	"time"

	"sstvlive/sstv"
)

// scheduleSize is the number of pending tone changes a Schedule holds,
// about three seconds of PD120 pixels.
const scheduleSize = 1 << 14

// Schedule carries tone changes from the transmitting goroutine to an
// output's playback goroutine. Each change is stamped with the clock when
// it is made and replayed at that time plus a fixed latency, one output
// sample at a time, so changes much shorter than an output buffer keep
// their timing.
//
// SetFrequency and Silence must not be called concurrently with each
// other; Align and Next belong to the playback goroutine.
type Schedule struct {
	clock   sstv.Clock
	rate    float64
	latency time.Duration

	ring    [scheduleSize]Event
	head    atomic.Uint64 // next slot the producer writes
	tail    atomic.Uint64 // next slot the consumer reads
	dropped atomic.Uint64

	// Playback state, owned by the consumer.
	hz      uint32
	base    time.Duration
	samples int64
	aligned bool
}

// NewSchedule returns a Schedule replaying changes made against c at
// rate samples per second, latency behind the clock.
func NewSchedule(c sstv.Clock, rate float64, latency time.Duration) *Schedule {
	return &Schedule{clock: c, rate: rate, latency: latency}
}

func (s *Schedule) SetFrequency(hz uint32) {
	s.push(hz)
}

func (s *Schedule) Silence() {
	s.push(0)
}

func (s *Schedule) push(hz uint32) {
	head := s.head.Load()
	if head-s.tail.Load() == scheduleSize {
		s.dropped.Add(1)
		return
	}
	s.ring[head%scheduleSize] = Event{At: s.clock.Now(), Hz: hz}
	s.head.Store(head + 1)
}

// Dropped returns how many changes were lost because playback had stopped
// draining the schedule.
func (s *Schedule) Dropped() uint64 {
	return s.dropped.Load()
}

// playhead is the clock time of the next output sample.
func (s *Schedule) playhead() time.Duration {
	return s.base + time.Duration(float64(s.samples)*float64(time.Second)/s.rate)
}

// Align is called before rendering each output buffer. It ties the
// playhead to the clock on first use, and again whenever the output has
// drifted more than half the latency away from it.
func (s *Schedule) Align() {
	want := s.clock.Now() - s.latency
	if s.aligned {
		drift := s.playhead() - want
		if drift < 0 {
			drift = -drift
		}
		if drift <= s.latency/2 {
			return
		}
	}
	s.base, s.samples, s.aligned = want, 0, true
}

// Next applies every change due by the playhead, returns the tone for the
// current sample and advances the playhead by one sample.
func (s *Schedule) Next() uint32 {
	if !s.aligned {
		s.Align()
	}
	now := s.playhead()
	tail := s.tail.Load()
	for head := s.head.Load(); tail < head; tail++ {
		e := s.ring[tail%scheduleSize]
		if e.At > now {
			break
		}
		s.hz = e.Hz
	}
	s.tail.Store(tail)
	s.samples++
	return s.hz
}
