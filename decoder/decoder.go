// Package decoder rebuilds pictures from recorded SSTV tone timelines.
package decoder

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"
	"time"

	"sstvlive/sstv"
	"sstvlive/tone"
)

var (
	ErrNoHeader     = errors.New("decoder: no calibration header found")
	ErrParity       = errors.New("decoder: VIS parity mismatch")
	ErrModeMismatch = errors.New("decoder: VIS code does not match mode")
	ErrNoSync       = errors.New("decoder: line sync not found")
)

// State is the position of the decoder in the transmission.
type State int

const (
	// StateSearchHeader looks for the leader, break and leader sequence
	// and reads the VIS code that follows.
	StateSearchHeader State = iota
	// StateSearchSync looks for the next line sync pulse.
	StateSearchSync
	// StatePorch waits for the first pixel after the porch.
	StatePorch
	// StateScan reads the four scan segments of a line pair.
	StateScan
	// StateDone is reached after the last line pair.
	StateDone
)

// tolerance is the relative error accepted on pulse durations.
const tolerance = 0.15

func near(got, want time.Duration) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) <= tolerance*float64(want)
}

// timeline is a tone recording prepared for lookups.
type timeline struct {
	events []tone.Event
	spans  []tone.Span // consecutive equal tones merged
}

func newTimeline(events []tone.Event) *timeline {
	tl := &timeline{events: events}
	for _, s := range tone.Spans(events) {
		if n := len(tl.spans); n > 0 && tl.spans[n-1].Hz == s.Hz {
			tl.spans[n-1].Duration += s.Duration
			continue
		}
		tl.spans = append(tl.spans, s)
	}
	return tl
}

// at returns the tone on air at t.
func (tl *timeline) at(t time.Duration) uint32 {
	i := sort.Search(len(tl.events), func(i int) bool { return tl.events[i].At > t })
	if i == 0 {
		return 0
	}
	return tl.events[i-1].Hz
}

// slot returns the earliest tone started within half a slot of t. Tones
// with zero duration still count, which matters for the pixel that is
// cut short by the next sync.
func (tl *timeline) slot(t, width time.Duration) (uint32, bool) {
	from := t - width/2
	i := sort.Search(len(tl.events), func(i int) bool { return tl.events[i].At >= from })
	if i == len(tl.events) || tl.events[i].At >= t+width/2 {
		return tl.at(t), false
	}
	return tl.events[i].Hz, true
}

// header finds the calibration header and returns the VIS code and the
// time the stop bit ends.
func (tl *timeline) header() (uint8, time.Duration, error) {
	s := tl.spans
	for i := 0; i+3 < len(s); i++ {
		if s[i].Hz != sstv.FreqLeader || !near(s[i].Duration, sstv.LeaderDuration) ||
			s[i+1].Hz != sstv.FreqSync || !near(s[i+1].Duration, sstv.BreakDuration) ||
			s[i+2].Hz != sstv.FreqLeader || !near(s[i+2].Duration, sstv.LeaderDuration) ||
			s[i+3].Hz != sstv.FreqSync {
			continue
		}
		vis, end, err := tl.vis(s[i+3].Start)
		if errors.Is(err, ErrNoHeader) {
			continue
		}
		return vis, end, err
	}
	return 0, 0, ErrNoHeader
}

// vis reads the bits of a VIS code whose start bit begins at start.
func (tl *timeline) vis(start time.Duration) (uint8, time.Duration, error) {
	const bits = 8 // seven data bits and parity
	center := func(n int) time.Duration {
		return start + time.Duration(n)*sstv.VISBitDuration + sstv.VISBitDuration/2
	}
	if tl.at(center(0)) != sstv.FreqSync || tl.at(center(bits+1)) != sstv.FreqSync {
		return 0, 0, ErrNoHeader
	}

	var code, parity uint8
	for n := 0; n < bits; n++ {
		var bit uint8
		switch tl.at(center(n + 1)) {
		case sstv.FreqVISOne:
			bit = 1
		case sstv.FreqVISZero:
		default:
			return 0, 0, ErrNoHeader
		}
		parity ^= bit
		if n < bits-1 {
			code |= bit << n
		}
	}
	end := start + (bits+2)*sstv.VISBitDuration
	if parity != 0 {
		return code, end, fmt.Errorf("%w: code %#02x", ErrParity, code)
	}
	return code, end, nil
}

// DecodeVIS finds the calibration header in events and returns its VIS code.
func DecodeVIS(events []tone.Event) (uint8, error) {
	vis, _, err := newTimeline(events).header()
	return vis, err
}

// Decode rebuilds the picture carried by events. When the recording stops
// early the rows decoded so far are returned together with ErrNoSync.
func Decode(events []tone.Event, m sstv.Mode) (*image.RGBA, error) {
	tl := newTimeline(events)
	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	pixel := m.PixelDuration()

	var (
		state = StateSearchHeader
		pair  int
		now   time.Duration
		span  int
	)
	for {
		switch state {
		case StateSearchHeader:
			vis, end, err := tl.header()
			if err != nil {
				return nil, err
			}
			if vis != m.VIS {
				return nil, fmt.Errorf("%w: got %#02x, %s uses %#02x", ErrModeMismatch, vis, m.Name, m.VIS)
			}
			now = end
			state = StateSearchSync

		case StateSearchSync:
			found := false
			for ; span < len(tl.spans); span++ {
				s := tl.spans[span]
				end := s.Start + s.Duration
				if end <= now {
					continue
				}
				// The first sync runs on from the 1200 Hz stop bit, so only
				// the part after the search point counts.
				if s.Hz == sstv.FreqSync && near(end-max(s.Start, now), m.SyncDuration) {
					now = end
					found = true
					span++
					break
				}
			}
			if !found {
				return img, fmt.Errorf("%w: line pair %d", ErrNoSync, pair)
			}
			state = StatePorch

		case StatePorch:
			// The first pixel is the first tone change after the porch.
			earliest := now + m.PorchDuration/2
			i := sort.Search(len(tl.events), func(i int) bool { return tl.events[i].At >= earliest })
			if i == len(tl.events) {
				return img, fmt.Errorf("%w: line pair %d has no picture", ErrNoSync, pair)
			}
			now = tl.events[i].At
			state = StateScan

		case StateScan:
			var seg [4][]float64
			for s := range seg {
				seg[s] = make([]float64, m.Width)
				for x := 0; x < m.Width; x++ {
					t := now + time.Duration(s*m.Width+x)*pixel
					hz, _ := tl.slot(t, pixel)
					seg[s][x] = level(hz)
				}
			}
			for x := 0; x < m.Width; x++ {
				ry, by := seg[1][x]-128, seg[2][x]-128
				img.SetRGBA(x, 2*pair, toRGB(seg[0][x], ry, by))
				img.SetRGBA(x, 2*pair+1, toRGB(seg[3][x], ry, by))
			}
			now += time.Duration(4*m.Width-1) * pixel
			pair++
			if pair == m.LinePairs() {
				state = StateDone
			} else {
				state = StateSearchSync
			}

		case StateDone:
			return img, nil
		}
	}
}

// level inverts the frequency mapping back onto 0..255, centered in the
// 1 Hz bucket the encoder truncated into.
func level(hz uint32) float64 {
	const step = 255.0 / 800
	return (float64(hz)-float64(sstv.FreqBlack))*step + step/2
}

func toRGB(y, ry, by float64) color.RGBA {
	r := y + ry/0.713
	b := y + by/0.564
	g := (y - 0.299*r - 0.114*b) / 0.587
	return color.RGBA{clamp(r), clamp(g), clamp(b), 0xff}
}

func clamp(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
