package sstv

import "time"

// Protocol tones in Hz.
const (
	FreqVISOne  uint32 = 1100
	FreqSync    uint32 = 1200
	FreqVISZero uint32 = 1300
	FreqBlack   uint32 = 1500
	FreqLeader  uint32 = 1900
	FreqWhite   uint32 = 2300
)

// Calibration header timing.
const (
	LeaderDuration   = 300000 * time.Microsecond
	BreakDuration    = 10000 * time.Microsecond
	VISBitDuration   = 30000 * time.Microsecond
	VISStartDuration = VISBitDuration
	VISStopDuration  = VISBitDuration
)

// Mode holds the timing and geometry of a line-pair SSTV mode.
type Mode struct {
	Name          string
	VIS           uint8
	Width         int
	Height        int // must be even
	SyncDuration  time.Duration
	PorchDuration time.Duration
	ScanDuration  time.Duration // one Y, R-Y or B-Y segment
}

// PD120 is the only mode this package transmits.
var PD120 = Mode{
	Name:          "PD120",
	VIS:           0x5F,
	Width:         640,
	Height:        496,
	SyncDuration:  20000 * time.Microsecond,
	PorchDuration: 2080 * time.Microsecond,
	ScanDuration:  121600 * time.Microsecond,
}

// PixelDuration is the time each pixel of a scan segment is held.
// For PD120 this is 121600µs/640 = 190µs.
func (m Mode) PixelDuration() time.Duration {
	return m.ScanDuration / time.Duration(m.Width)
}

// LinePairs returns the number of line pairs in one image.
func (m Mode) LinePairs() int {
	return m.Height / 2
}

// LinePairDuration is the nominal air time of one line pair.
func (m Mode) LinePairDuration() time.Duration {
	return m.SyncDuration + m.PorchDuration + 4*m.PixelDuration()*time.Duration(m.Width)
}

// HeaderDuration is the air time of the calibration header.
func (m Mode) HeaderDuration() time.Duration {
	var d time.Duration
	for _, p := range CalibrationHeader(m.VIS) {
		d += p.Duration
	}
	return d
}

// Duration is the nominal air time of a full transmission in this mode.
func (m Mode) Duration() time.Duration {
	return m.HeaderDuration() + time.Duration(m.LinePairs())*m.LinePairDuration()
}
