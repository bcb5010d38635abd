package sstv

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// flatSurface is a single-color surface.
type flatSurface struct {
	w, h int
	c    uint16
}

func (s flatSurface) Bounds() image.Rectangle { return image.Rect(0, 0, s.w, s.h) }
func (s flatSurface) Pixel565(x, y int) uint16 {
	if x < 0 || x >= s.w || y < 0 || y >= s.h {
		panic("pixel out of range")
	}
	return s.c
}

// rowSurface has a different color on every row.
type rowSurface struct {
	w, h int
	rows []uint16
}

func (s rowSurface) Bounds() image.Rectangle  { return image.Rect(0, 0, s.w, s.h) }
func (s rowSurface) Pixel565(x, y int) uint16 { return s.rows[y] }

// countingEmitter counts tones and remembers the last one.
type countingEmitter struct {
	mu       sync.Mutex
	sets     int
	silences int
	last     uint32
	tones    []uint32
}

func (e *countingEmitter) SetFrequency(hz uint32) {
	e.mu.Lock()
	e.sets++
	e.last = hz
	e.tones = append(e.tones, hz)
	e.mu.Unlock()
}

func (e *countingEmitter) Silence() {
	e.mu.Lock()
	e.silences++
	e.last = 0
	e.mu.Unlock()
}

// failingTimer refuses to start.
type failingTimer struct{}

func (failingTimer) Start(time.Duration, func()) error { return ErrTimerStart }
func (failingTimer) Stop()                             {}

// deadTimer starts but never ticks.
type deadTimer struct{ stops int }

func (t *deadTimer) Start(time.Duration, func()) error { return nil }
func (t *deadTimer) Stop()                             { t.stops++ }

func newTestSegment(s Surface, e Emitter, width int) (*segmentEncoder, *VirtualClock) {
	clock := &VirtualClock{}
	return &segmentEncoder{
		surface:  s,
		emitter:  e,
		timer:    &VirtualTimer{Clock: clock},
		width:    width,
		period:   PD120.PixelDuration(),
		watchdog: 5 * time.Second,
	}, clock
}

func TestSegment_EmitsExactlyWidthTones(t *testing.T) {
	const width = 640
	em := &countingEmitter{}
	seg, clock := newTestSegment(flatSurface{width, 2, 0xffff}, em, width)

	if err := seg.runLuminance(0); err != nil {
		t.Fatalf("runLuminance: %v", err)
	}
	if em.sets != width {
		t.Fatalf("emitted %d tones, want %d", em.sets, width)
	}
	if got := seg.cursor.Pixel(); got != width {
		t.Fatalf("cursor at %d, want %d", got, width)
	}
	if got, want := clock.Now(), time.Duration(width)*190*time.Microsecond; got != want {
		t.Fatalf("segment took %v, want %v", got, want)
	}

	// A late tick after completion must neither emit nor signal again.
	seg.tick(seg.gen)
	if em.sets != width {
		t.Fatalf("late tick emitted a tone (%d total)", em.sets)
	}
}

func TestSegment_RunsBackToBack(t *testing.T) {
	const width = 16
	em := &countingEmitter{}
	seg, _ := newTestSegment(flatSurface{width, 2, 0}, em, width)

	for i := 0; i < 50; i++ {
		if err := seg.runDifference(SegmentBlueDifference, 0, 1); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if em.sets != 50*width {
		t.Fatalf("emitted %d tones, want %d", em.sets, 50*width)
	}
}

func TestSegment_DifferenceAveragesRowPair(t *testing.T) {
	red, blue := Pack565(255, 0, 0), Pack565(0, 0, 255)
	s := rowSurface{w: 4, h: 2, rows: []uint16{red, blue}}

	r := ToChannels(255, 0, 0)
	b := ToChannels(0, 0, 255)

	tests := []struct {
		kind SegmentType
		want uint32
	}{
		{SegmentRedDifference, DiffToFrequency((r.RY + b.RY) / 2)},
		{SegmentBlueDifference, DiffToFrequency((r.BY + b.BY) / 2)},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			em := &countingEmitter{}
			seg, _ := newTestSegment(s, em, 4)
			if err := seg.runDifference(tt.kind, 0, 1); err != nil {
				t.Fatal(err)
			}
			for i, hz := range em.tones {
				if hz != tt.want {
					t.Fatalf("pixel %d: %d Hz, want %d", i, hz, tt.want)
				}
			}
		})
	}
}

func TestSegment_LuminanceReadsItsOwnRow(t *testing.T) {
	s := rowSurface{w: 8, h: 2, rows: []uint16{0x0000, 0xffff}}
	em := &countingEmitter{}
	seg, _ := newTestSegment(s, em, 8)

	if err := seg.runLuminance(1); err != nil {
		t.Fatal(err)
	}
	for i, hz := range em.tones {
		if hz != FreqWhite {
			t.Fatalf("pixel %d: %d Hz, want %d", i, hz, FreqWhite)
		}
	}
}

func TestSegment_TimerStartFailure(t *testing.T) {
	em := &countingEmitter{}
	seg, _ := newTestSegment(flatSurface{8, 2, 0}, em, 8)
	seg.timer = failingTimer{}

	err := seg.runLuminance(0)
	if !errors.Is(err, ErrTimerStart) {
		t.Fatalf("err = %v, want ErrTimerStart", err)
	}
	if em.sets != 0 {
		t.Fatalf("emitted %d tones without a timer", em.sets)
	}
}

func TestSegment_StalledTimerAborts(t *testing.T) {
	em := &countingEmitter{}
	dead := &deadTimer{}
	seg, _ := newTestSegment(flatSurface{8, 2, 0}, em, 8)
	seg.timer = dead
	seg.watchdog = 10 * time.Millisecond

	err := seg.runLuminance(0)
	if !errors.Is(err, ErrTimerStalled) {
		t.Fatalf("err = %v, want ErrTimerStalled", err)
	}
	if dead.stops != 1 {
		t.Fatalf("timer stopped %d times, want 1", dead.stops)
	}
}

// heldTimer keeps the tick handler and only fires it when told to.
type heldTimer struct {
	tick    func()
	started chan struct{}
}

func newHeldTimer() *heldTimer { return &heldTimer{started: make(chan struct{})} }

func (t *heldTimer) Start(_ time.Duration, tick func()) error {
	t.tick = tick
	close(t.started)
	return nil
}
func (t *heldTimer) Stop() {}

func TestSegment_TickAfterWatchdogIsIgnored(t *testing.T) {
	em := &countingEmitter{}
	held := newHeldTimer()
	seg, _ := newTestSegment(flatSurface{8, 2, 0}, em, 8)
	seg.timer = held
	seg.watchdog = 10 * time.Millisecond

	if err := seg.runLuminance(0); !errors.Is(err, ErrTimerStalled) {
		t.Fatalf("err = %v, want ErrTimerStalled", err)
	}
	// The transmitter drops the surface after an abort; a tick the timer
	// dispatched too late must not read it.
	seg.surface = nil
	held.tick()
	if em.sets != 0 {
		t.Fatalf("late tick emitted %d tones", em.sets)
	}
}

// slowSurface blocks every read until release is closed.
type slowSurface struct {
	flatSurface
	reading chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowSurface) Pixel565(x, y int) uint16 {
	s.once.Do(func() { close(s.reading) })
	<-s.release
	return s.flatSurface.Pixel565(x, y)
}

func TestSegment_WatchdogWaitsForRunningTick(t *testing.T) {
	surface := &slowSurface{
		flatSurface: flatSurface{8, 2, 0},
		reading:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	held := newHeldTimer()
	seg, _ := newTestSegment(surface, &countingEmitter{}, 8)
	seg.timer = held
	seg.watchdog = 200 * time.Millisecond

	var released atomic.Bool
	go func() {
		<-held.started
		go held.tick()
		<-surface.reading
		// Keep the tick inside the surface past the watchdog deadline.
		time.Sleep(400 * time.Millisecond)
		released.Store(true)
		close(surface.release)
	}()

	if err := seg.runLuminance(0); !errors.Is(err, ErrTimerStalled) {
		t.Fatalf("err = %v, want ErrTimerStalled", err)
	}
	if !released.Load() {
		t.Fatal("watchdog returned while a tick was still reading the surface")
	}
}

func TestSegmentType_String(t *testing.T) {
	names := map[SegmentType]string{
		SegmentLuminance:      "Y",
		SegmentRedDifference:  "R-Y",
		SegmentBlueDifference: "B-Y",
		SegmentType(9):        "SegmentType(9)",
	}
	for kind, want := range names {
		if got := kind.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
