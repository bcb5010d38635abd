package sdr

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/samuel/go-hackrf/hackrf"
	"sstvlive/config"
	"sstvlive/sstv"
	"sstvlive/tone"
)

// txLatency is how far the radio runs behind the clock. It has to cover
// the USB transfers libhackrf keeps queued ahead of the one being filled.
const txLatency = 300 * time.Millisecond

// FMEmitter sends the SSTV tone as narrow FM through a HackRF One.
// SetFrequency and Silence stamp the change with the clock; the TX
// callback replays the changes sample by sample txLatency later.
type FMEmitter struct {
	dev   *hackrf.Device
	mod   *Modulator
	sched *tone.Schedule

	closeOnce sync.Once
}

// Open initializes the HackRF, configures it from cfg and starts the
// transmit stream with the carrier keyed off. Tone changes are timed
// against c.
func Open(cfg *config.HackRF, c sstv.Clock) (*FMEmitter, error) {
	if err := hackrf.Init(); err != nil {
		return nil, fmt.Errorf("hackrf.Init() failed: %w", err)
	}
	dev, err := hackrf.Open()
	if err != nil {
		hackrf.Exit()
		return nil, fmt.Errorf("hackrf.Open() failed: %w", err)
	}

	mod := NewModulator(cfg.SampleRate, cfg.Deviation, cfg.AudioLimit)
	e := &FMEmitter{dev: dev, mod: mod, sched: tone.NewSchedule(c, mod.AudioRate(), txLatency)}
	if err := e.configure(cfg); err != nil {
		dev.Close()
		hackrf.Exit()
		return nil, err
	}
	return e, nil
}

func (e *FMEmitter) configure(cfg *config.HackRF) error {
	txFrequencyHz := uint64(cfg.Frequency * 1_000_000)

	if err := e.dev.SetFreq(txFrequencyHz); err != nil {
		return err
	}
	if err := e.dev.SetSampleRate(cfg.SampleRate); err != nil {
		return err
	}
	if err := e.dev.SetTXVGAGain(cfg.Gain); err != nil {
		return err
	}
	if err := e.dev.SetAmpEnable(cfg.Amp); err != nil {
		return err
	}

	log.Printf("[HackRF] Starting transmission on %.3f MHz, %.1f kHz deviation (Sample Rate: %.1f Msps, audio %.0f Hz)...",
		float64(txFrequencyHz)/1e6, cfg.Deviation/1e3, cfg.SampleRate/1e6, e.mod.AudioRate())

	// StartTX is non-blocking and returns immediately.
	return e.dev.StartTX(func(buf []byte) error {
		e.sched.Align()
		e.mod.Fill(buf, e.sched.Next)
		return nil
	})
}

// SetFrequency changes the modulating tone.
func (e *FMEmitter) SetFrequency(hz uint32) { e.sched.SetFrequency(hz) }

// Latency is how long after a change it goes out on air.
func (e *FMEmitter) Latency() time.Duration { return txLatency }

// Silence keys the carrier off.
func (e *FMEmitter) Silence() { e.sched.Silence() }

// Close stops the stream and releases the device.
func (e *FMEmitter) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.Silence()
		if stopErr := e.dev.StopTX(); stopErr != nil {
			err = stopErr
		}
		if closeErr := e.dev.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		hackrf.Exit()
		log.Println("[HackRF] Device closed.")
	})
	return err
}
