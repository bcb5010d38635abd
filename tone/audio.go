//go:build !headless

package tone

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"

	"sstvlive/sstv"
)

const (
	// audioBuffer is the playback buffer requested from oto.
	audioBuffer = 20 * time.Millisecond
	// audioLatency is how far playback runs behind the clock. It has to
	// cover the largest chunk oto asks Read for at once.
	audioLatency = 100 * time.Millisecond
)

// Audio plays the tone on the default sound device. Tone changes are
// stamped with the clock and played back sample-accurately a constant
// audioLatency later.
type Audio struct {
	ctx    *oto.Context
	player *oto.Player
	rate   float64

	sched *Schedule
	phase float64 // owned by Read
}

// NewAudio opens the sound device at sampleRate and starts playing
// silence. Tone changes are timed against c.
func NewAudio(c sstv.Clock, sampleRate int) (*Audio, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   audioBuffer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-ready

	a := &Audio{ctx: ctx, rate: float64(sampleRate), sched: NewSchedule(c, float64(sampleRate), audioLatency)}
	a.player = ctx.NewPlayer(a)
	a.player.Play()
	return a, nil
}

func (a *Audio) SetFrequency(hz uint32) {
	a.sched.SetFrequency(hz)
}

func (a *Audio) Silence() {
	a.sched.Silence()
}

// Latency is how long after a change it is heard.
func (a *Audio) Latency() time.Duration { return audioLatency }

// Read feeds oto with float32 samples, taking the tone of every sample
// from the schedule.
func (a *Audio) Read(p []byte) (int, error) {
	n := len(p) / 4
	a.sched.Align()
	for i := 0; i < n; i++ {
		var s float32
		if hz := a.sched.Next(); hz != 0 {
			s = float32(amplitude * math.Sin(a.phase))
			a.phase = math.Mod(a.phase+2*math.Pi*float64(hz)/a.rate, 2*math.Pi)
		}
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return n * 4, nil
}

// Close stops playback.
func (a *Audio) Close() error {
	a.Silence()
	return a.player.Close()
}
