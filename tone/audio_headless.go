//go:build headless

package tone

import (
	"errors"
	"time"

	"sstvlive/sstv"
)

// ErrNoAudio is returned by NewAudio in headless builds.
var ErrNoAudio = errors.New("audio output not available in headless build")

// Audio is unavailable in headless builds.
type Audio struct{}

func NewAudio(c sstv.Clock, sampleRate int) (*Audio, error) {
	return nil, ErrNoAudio
}

func (a *Audio) SetFrequency(hz uint32) {}

func (a *Audio) Silence() {}

func (a *Audio) Latency() time.Duration { return 0 }

func (a *Audio) Close() error { return nil }
