// Package tone provides sstv.Emitter implementations: a timeline recorder,
// a WAV renderer, live audio playback and a fan-out.
package tone

import (
	"sync"
	"time"

	"sstvlive/sstv"
)

// Event is a frequency change at a point on the clock. Hz is 0 for silence.
type Event struct {
	At time.Duration
	Hz uint32
}

// Span is a tone and how long it stayed on air.
type Span struct {
	Hz       uint32
	Start    time.Duration
	Duration time.Duration
}

// Recorder keeps every frequency change it is asked to make, stamped with
// the clock's time.
type Recorder struct {
	clock sstv.Clock

	mu     sync.Mutex
	events []Event
}

// NewRecorder returns a Recorder with room for sizeHint events.
func NewRecorder(c sstv.Clock, sizeHint int) *Recorder {
	return &Recorder{clock: c, events: make([]Event, 0, sizeHint)}
}

func (r *Recorder) SetFrequency(hz uint32) {
	r.record(hz)
}

func (r *Recorder) Silence() {
	r.record(0)
}

func (r *Recorder) record(hz uint32) {
	now := r.clock.Now()
	r.mu.Lock()
	r.events = append(r.events, Event{At: now, Hz: hz})
	r.mu.Unlock()
}

// Events returns a copy of the recorded timeline.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Reset discards the recorded timeline.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = r.events[:0]
	r.mu.Unlock()
}

// Spans turns a timeline into tones with durations. Each event lasts until
// the next one; the last event has zero duration.
func Spans(events []Event) []Span {
	spans := make([]Span, len(events))
	for i, e := range events {
		spans[i] = Span{Hz: e.Hz, Start: e.At}
		if i+1 < len(events) {
			spans[i].Duration = events[i+1].At - e.At
		}
	}
	return spans
}
