package sstv

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
)

// Timer is a periodic tick source. Start begins calling tick once per
// period, the first call one period after Start. Stop may be called from
// inside tick; no tick is delivered after Stop returns to the tick.
type Timer interface {
	Start(period time.Duration, tick func()) error
	Stop()
}

// run is the stop flag of one Start call.
type run struct {
	stopped atomic.Bool
}

// runSlot tracks the active run of a timer.
type runSlot struct {
	cur atomic.Pointer[run]
}

func (s *runSlot) begin() *run {
	r := new(run)
	if old := s.cur.Swap(r); old != nil {
		old.stopped.Store(true)
	}
	return r
}

func (s *runSlot) stop() {
	if r := s.cur.Swap(nil); r != nil {
		r.stopped.Store(true)
	}
}

func checkPeriod(period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("%w: period %v", ErrTimerStart, period)
	}
	return nil
}

// SpinTimer fires from a goroutine locked to its own OS thread that
// spins on absolute deadlines start+n*period, so lateness in one tick
// does not accumulate into the next.
type SpinTimer struct {
	// Late, if set, is told how far past its deadline each tick ran.
	Late func(time.Duration)

	slot runSlot
}

func (t *SpinTimer) Start(period time.Duration, tick func()) error {
	if err := checkPeriod(period); err != nil {
		return err
	}
	r := t.slot.begin()
	go t.loop(r, time.Now(), period, tick)
	return nil
}

func (t *SpinTimer) Stop() {
	t.slot.stop()
}

// loop counts deadlines from start, the moment Start was called, so the
// goroutine's own startup delay is absorbed by the first tick.
func (t *SpinTimer) loop(r *run, start time.Time, period time.Duration, tick func()) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for n := 1; ; n++ {
		deadline := start.Add(time.Duration(n) * period)
		for time.Now().Before(deadline) {
			if r.stopped.Load() {
				return
			}
		}
		if r.stopped.Load() {
			return
		}
		if t.Late != nil {
			t.Late(time.Since(deadline))
		}
		tick()
	}
}

// TickerTimer is a Timer on top of time.Ticker. It costs far less CPU
// than SpinTimer but is at the mercy of the scheduler's granularity.
type TickerTimer struct {
	slot runSlot
}

func (t *TickerTimer) Start(period time.Duration, tick func()) error {
	if err := checkPeriod(period); err != nil {
		return err
	}
	r := t.slot.begin()
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for range ticker.C {
			if r.stopped.Load() {
				return
			}
			tick()
			if r.stopped.Load() {
				return
			}
		}
	}()
	return nil
}

func (t *TickerTimer) Stop() {
	t.slot.stop()
}

// VirtualTimer drives ticks against a VirtualClock, advancing the clock
// by one period before every tick.
type VirtualTimer struct {
	Clock *VirtualClock

	slot runSlot
}

func (t *VirtualTimer) Start(period time.Duration, tick func()) error {
	if err := checkPeriod(period); err != nil {
		return err
	}
	if t.Clock == nil {
		return fmt.Errorf("%w: virtual timer has no clock", ErrTimerStart)
	}
	r := t.slot.begin()
	go func() {
		for !r.stopped.Load() {
			t.Clock.Advance(period)
			tick()
		}
	}()
	return nil
}

func (t *VirtualTimer) Stop() {
	t.slot.stop()
}
