package tone

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"sstvlive/sstv"
)

const (
	wavBitDepth  = 16
	wavPCMFormat = 1
	wavChunk     = 8192
	// amplitude leaves a little headroom below full scale.
	amplitude = 0.8
)

// WAVWriter renders a phase-continuous sine into a 16-bit mono WAV file.
// Sample positions come from the clock, so with a sstv.VirtualClock a whole
// transmission renders in a fraction of its air time.
type WAVWriter struct {
	clock sstv.Clock
	rate  int
	enc   *wav.Encoder
	buf   *audio.IntBuffer

	hz      uint32
	phase   float64
	written int64
	err     error
}

// NewWAVWriter starts a WAV stream on w at sampleRate samples per second.
func NewWAVWriter(w io.WriteSeeker, c sstv.Clock, sampleRate int) (*WAVWriter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	return &WAVWriter{
		clock: c,
		rate:  sampleRate,
		enc:   wav.NewEncoder(w, sampleRate, wavBitDepth, 1, wavPCMFormat),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			Data:           make([]int, 0, wavChunk),
			SourceBitDepth: wavBitDepth,
		},
	}, nil
}

func (w *WAVWriter) SetFrequency(hz uint32) {
	w.render()
	w.hz = hz
}

func (w *WAVWriter) Silence() {
	w.SetFrequency(0)
}

// Samples returns how many samples have been rendered so far.
func (w *WAVWriter) Samples() int64 {
	return w.written
}

// render synthesizes the current tone up to the clock's present.
func (w *WAVWriter) render() {
	target := int64(w.clock.Now()) * int64(w.rate) / 1e9
	step := 2 * math.Pi * float64(w.hz) / float64(w.rate)
	for ; w.written < target; w.written++ {
		var s int
		if w.hz != 0 {
			s = int(amplitude * math.MaxInt16 * math.Sin(w.phase))
			w.phase = math.Mod(w.phase+step, 2*math.Pi)
		}
		w.buf.Data = append(w.buf.Data, s)
		if len(w.buf.Data) == cap(w.buf.Data) {
			w.flush()
		}
	}
}

func (w *WAVWriter) flush() {
	if len(w.buf.Data) == 0 {
		return
	}
	if w.err == nil {
		w.err = w.enc.Write(w.buf)
	}
	w.buf.Data = w.buf.Data[:0]
}

// Close renders up to the present, flushes and finalizes the WAV header.
// It reports the first write error, if any.
func (w *WAVWriter) Close() error {
	w.render()
	w.flush()
	if err := w.enc.Close(); err != nil && w.err == nil {
		w.err = err
	}
	if w.err != nil {
		return fmt.Errorf("failed to write WAV: %w", w.err)
	}
	return nil
}
