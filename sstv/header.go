package sstv

import "time"

// Pulse is a tone held for a fixed time.
type Pulse struct {
	Hz       uint32
	Duration time.Duration
}

// visDataBits is the number of payload bits in a VIS code.
const visDataBits = 7

// CalibrationHeader returns the leader and VIS pulses that announce a
// transmission: two 1900 Hz leaders around a 1200 Hz break, a 1200 Hz
// start bit, seven data bits least significant first, an even parity bit
// and a 1200 Hz stop bit.
func CalibrationHeader(vis uint8) []Pulse {
	pulses := make([]Pulse, 0, 4+visDataBits+2)
	pulses = append(pulses,
		Pulse{FreqLeader, LeaderDuration},
		Pulse{FreqSync, BreakDuration},
		Pulse{FreqLeader, LeaderDuration},
		Pulse{FreqSync, VISStartDuration},
	)

	var parity uint8
	for i := 0; i < visDataBits; i++ {
		bit := (vis >> i) & 1
		parity ^= bit
		pulses = append(pulses, visBit(bit))
	}

	return append(pulses, visBit(parity), Pulse{FreqSync, VISStopDuration})
}

func visBit(bit uint8) Pulse {
	if bit == 1 {
		return Pulse{FreqVISOne, VISBitDuration}
	}
	return Pulse{FreqVISZero, VISBitDuration}
}

// sendHeader emits the calibration header for the transmitter's mode.
func (t *Transmitter) sendHeader() {
	for _, p := range CalibrationHeader(t.mode.VIS) {
		t.pulse(p)
	}
}
