package sstv

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync/atomic"
	"time"
)

// Observer is told about protocol progress. Implementations must be cheap;
// they run on the transmitting goroutine between timed steps.
type Observer interface {
	PulseEmitted(p Pulse)
	SegmentDone(kind SegmentType, elapsed time.Duration)
	LinePairDone(pair int)
}

// Transmitter sends pictures as SSTV through an Emitter. One Transmitter
// sends one picture at a time.
type Transmitter struct {
	mode     Mode
	emitter  Emitter
	clock    Clock
	observer Observer
	busy     atomic.Bool

	seg segmentEncoder
}

// Option configures a Transmitter.
type Option func(*Transmitter)

// WithMode overrides the transmission mode. Only PD120 is on-air
// compatible; other geometries exist for tests and tooling.
func WithMode(m Mode) Option {
	return func(t *Transmitter) { t.mode = m }
}

// WithObserver attaches a progress observer.
func WithObserver(o Observer) Option {
	return func(t *Transmitter) { t.observer = o }
}

// WithWatchdog sets how long a scan segment may take before it is
// considered stalled.
func WithWatchdog(d time.Duration) Option {
	return func(t *Transmitter) { t.seg.watchdog = d }
}

// NewTransmitter returns a PD120 transmitter that emits tones on e, holds
// pulses against c and paces pixels with tm.
func NewTransmitter(e Emitter, c Clock, tm Timer, opts ...Option) *Transmitter {
	t := &Transmitter{
		mode:    PD120,
		emitter: e,
		clock:   c,
	}
	t.seg.emitter = e
	t.seg.timer = tm
	for _, opt := range opts {
		opt(t)
	}
	t.seg.width = t.mode.Width
	t.seg.period = t.mode.PixelDuration()
	if t.seg.watchdog == 0 {
		t.seg.watchdog = 4*t.mode.ScanDuration + time.Second
	}
	return t
}

// Mode returns the transmission mode.
func (t *Transmitter) Mode() Mode {
	return t.mode
}

// Transmit sends the calibration header, every line pair of s in order,
// then silences the emitter. It returns once the last tone has been held.
//
// ctx is only checked between line pairs; a started pair always runs to
// completion. The emitter is silenced on every return path.
func (t *Transmitter) Transmit(ctx context.Context, s Surface) (err error) {
	if err := t.check(s); err != nil {
		return err
	}
	if !t.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer t.busy.Store(false)
	defer t.emitter.Silence()

	t.seg.surface = s
	defer func() { t.seg.surface = nil }()

	log.Printf("[SSTV] Sending %s header...", t.mode.Name)
	t.sendHeader()

	log.Printf("[SSTV] Sending image data (%d line pairs)...", t.mode.LinePairs())
	start := t.clock.Now()
	for k := 0; k < t.mode.LinePairs(); k++ {
		if err := ctx.Err(); err != nil {
			log.Printf("[SSTV] Transmission aborted before line pair %d: %v", k, err)
			return err
		}
		if err := t.sendLinePair(k); err != nil {
			return fmt.Errorf("line pair %d: %w", k, err)
		}
	}

	log.Printf("[SSTV] Image data sent in %v", (t.clock.Now() - start).Round(time.Millisecond))
	return nil
}

func (t *Transmitter) check(s Surface) error {
	if t.mode.Width <= 0 || t.mode.Height <= 0 || t.mode.Height%2 != 0 || t.mode.PixelDuration() <= 0 {
		return fmt.Errorf("%w: %s is %dx%d", ErrInvalidMode, t.mode.Name, t.mode.Width, t.mode.Height)
	}
	if s == nil {
		return ErrNoSurface
	}
	want := image.Rect(0, 0, t.mode.Width, t.mode.Height)
	if got := s.Bounds(); got != want {
		return fmt.Errorf("%w: got %v, want %v", ErrSurfaceSize, got, want)
	}
	return nil
}

// pulse sets a tone and busy-waits for its duration.
func (t *Transmitter) pulse(p Pulse) {
	t.emitter.SetFrequency(p.Hz)
	t.clock.Hold(p.Duration)
	if t.observer != nil {
		t.observer.PulseEmitted(p)
	}
}
