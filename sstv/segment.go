package sstv

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// SegmentType selects how a scan segment derives its tones.
type SegmentType int

const (
	SegmentLuminance SegmentType = iota
	SegmentRedDifference
	SegmentBlueDifference
)

func (t SegmentType) String() string {
	switch t {
	case SegmentLuminance:
		return "Y"
	case SegmentRedDifference:
		return "R-Y"
	case SegmentBlueDifference:
		return "B-Y"
	}
	return fmt.Sprintf("SegmentType(%d)", int(t))
}

// ScanCursor is the state of one scan segment. While the segment runs the
// tick handler is its only writer; the waiting caller only reads it.
type ScanCursor struct {
	Kind    SegmentType
	Row     int // luminance row
	OddRow  int // first row of the pair for difference segments
	EvenRow int // second row of the pair

	pixel atomic.Int32
	done  chan struct{}
}

// Pixel returns the number of pixels sent so far.
func (c *ScanCursor) Pixel() int {
	return int(c.pixel.Load())
}

// segmentEncoder sends one scan segment, one pixel per timer tick.
type segmentEncoder struct {
	surface  Surface
	emitter  Emitter
	timer    Timer
	width    int
	period   time.Duration
	watchdog time.Duration

	cursor ScanCursor

	// mu is held by the tick handler while it reads the surface, and by
	// an aborting watchdog. active is the generation of the running
	// segment, 0 when none is running.
	mu     sync.Mutex
	gen    uint64
	active uint64
}

// runLuminance sends the luminance of one row.
func (e *segmentEncoder) runLuminance(row int) error {
	c := &e.cursor
	c.Kind, c.Row = SegmentLuminance, row
	return e.run()
}

// runDifference sends the R-Y or B-Y average of a row pair.
func (e *segmentEncoder) runDifference(kind SegmentType, odd, even int) error {
	c := &e.cursor
	c.Kind, c.OddRow, c.EvenRow = kind, odd, even
	return e.run()
}

// run resets the cursor, starts the pixel timer and blocks until the tick
// handler reports the last pixel.
func (e *segmentEncoder) run() error {
	c := &e.cursor
	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.active = gen
	c.pixel.Store(0)
	c.done = make(chan struct{})
	done := c.done
	e.mu.Unlock()

	if err := e.timer.Start(e.period, func() { e.tick(gen) }); err != nil {
		e.deactivate(gen)
		return fmt.Errorf("%v segment: %w", c.Kind, err)
	}

	watchdog := time.NewTimer(e.watchdog)
	defer watchdog.Stop()

	select {
	case <-done:
		return nil
	case <-watchdog.C:
		// Once deactivated no tick of this segment touches the surface,
		// even one the timer had already dispatched.
		e.deactivate(gen)
		e.timer.Stop()
		return fmt.Errorf("%w: %v segment stopped at pixel %d of %d",
			ErrTimerStalled, c.Kind, c.Pixel(), e.width)
	}
}

func (e *segmentEncoder) deactivate(gen uint64) {
	e.mu.Lock()
	if e.active == gen {
		e.active = 0
	}
	e.mu.Unlock()
}

// tick is the timer handler for segment gen. It emits the tone of the
// current pixel, advances the cursor, and on the last pixel stops the
// timer and closes the done channel. It never allocates, and the lock it
// takes is only contended by an aborting watchdog.
func (e *segmentEncoder) tick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != gen {
		return
	}
	c := &e.cursor
	x := int(c.pixel.Load())
	if x >= e.width {
		return
	}

	e.emitter.SetFrequency(e.frequency(x))

	x++
	c.pixel.Store(int32(x))
	if x >= e.width {
		e.active = 0
		e.timer.Stop()
		close(c.done)
	}
}

func (e *segmentEncoder) frequency(x int) uint32 {
	c := &e.cursor
	switch c.Kind {
	case SegmentRedDifference:
		odd, even := channelsAt(e.surface, x, c.OddRow), channelsAt(e.surface, x, c.EvenRow)
		return DiffToFrequency((odd.RY + even.RY) / 2)
	case SegmentBlueDifference:
		odd, even := channelsAt(e.surface, x, c.OddRow), channelsAt(e.surface, x, c.EvenRow)
		return DiffToFrequency((odd.BY + even.BY) / 2)
	default:
		return LumaToFrequency(channelsAt(e.surface, x, c.Row).Y)
	}
}
