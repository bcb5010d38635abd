package sdr

import (
	"math"
)

// NewLowPassFilterTaps creates the coefficients (taps) for a FIR low-pass filter.
// A Blackman window is used for good performance.
func NewLowPassFilterTaps(numTaps int, bandwidth, sampleRate float64) []float64 {
	taps := make([]float64, numTaps)
	cutoffFreq := bandwidth / 2.0
	normalizedCutoff := cutoffFreq / sampleRate

	M := float64(numTaps - 1)
	var sum float64
	for i := 0; i < numTaps; i++ {
		n := float64(i)
		window := 0.42 - 0.5*math.Cos(2*math.Pi*n/M) + 0.08*math.Cos(4*math.Pi*n/M)

		var sinc float64
		if i == int(M/2) {
			sinc = 2 * math.Pi * normalizedCutoff
		} else {
			sinc = math.Sin(2*math.Pi*normalizedCutoff*(n-M/2)) / (n - M/2)
		}

		taps[i] = sinc * window
		sum += taps[i]
	}

	// Normalize the taps to have a gain of 1 at DC (0 Hz)
	for i := range taps {
		taps[i] /= sum
	}
	return taps
}

const (
	audioRate  = 48000
	filterTaps = 127
)

// Modulator turns an SSTV tone into FM baseband IQ. The tone is synthesized
// at roughly 48 kHz, band-limited, then held across the radio samples while
// the carrier phase integrates it.
type Modulator struct {
	rate      float64
	interp    int
	audioRate float64
	deviation float64

	taps []float64
	hist []float64
	pos  int

	tonePhase    float64
	carrierPhase float64
	hz           uint32
	audio        float64
	n            int
}

// NewModulator returns a modulator for rate samples/s with the given peak
// deviation and audio cutoff, both in Hz.
func NewModulator(rate, deviation, audioLimit float64) *Modulator {
	interp := max(int(math.Round(rate/audioRate)), 1)
	ar := rate / float64(interp)
	return &Modulator{
		rate:      rate,
		interp:    interp,
		audioRate: ar,
		deviation: deviation,
		taps:      NewLowPassFilterTaps(filterTaps, 2*audioLimit, ar),
		hist:      make([]float64, filterTaps),
	}
}

// AudioRate returns the rate the tone is synthesized at.
func (m *Modulator) AudioRate() float64 { return m.audioRate }

// Fill writes len(buf)/2 interleaved int8 I/Q samples. tone is asked for
// the frequency once per audio sample, so tone changes inside one radio
// buffer keep their timing. A zero tone keys the carrier off.
func (m *Modulator) Fill(buf []byte, tone func() uint32) {
	for i := 0; i+1 < len(buf); i += 2 {
		if m.n == 0 {
			m.hz = tone()
			m.audio = m.nextAudio(m.hz)
		}
		m.n++
		if m.n == m.interp {
			m.n = 0
		}

		if m.hz == 0 {
			buf[i], buf[i+1] = 0, 0
			continue
		}
		m.carrierPhase += 2 * math.Pi * m.deviation * m.audio / m.rate
		if m.carrierPhase > math.Pi {
			m.carrierPhase -= 2 * math.Pi
		} else if m.carrierPhase < -math.Pi {
			m.carrierPhase += 2 * math.Pi
		}
		buf[i] = byte(int8(math.Cos(m.carrierPhase) * 127))
		buf[i+1] = byte(int8(math.Sin(m.carrierPhase) * 127))
	}
}

func (m *Modulator) nextAudio(hz uint32) float64 {
	var x float64
	if hz != 0 {
		x = math.Sin(m.tonePhase)
		m.tonePhase += 2 * math.Pi * float64(hz) / m.audioRate
		if m.tonePhase > 2*math.Pi {
			m.tonePhase -= 2 * math.Pi
		}
	}
	m.hist[m.pos] = x
	m.pos = (m.pos + 1) % len(m.hist)

	var y float64
	for k, tap := range m.taps {
		y += tap * m.hist[(m.pos+k)%len(m.hist)]
	}
	return y
}
