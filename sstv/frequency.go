package sstv

// LumaToFrequency maps a luminance value in [0,255] onto 1500..2300 Hz.
//
// The input is not clamped. Values outside the nominal range produce tones
// outside the picture band, which receivers treat as blacker than black or
// whiter than white.
func LumaToFrequency(y float32) uint32 {
	return offsetFrequency(float64(y) / 255.0 * 800)
}

// DiffToFrequency maps a color difference value in roughly [-128,127]
// onto 1500..2300 Hz. Like LumaToFrequency it does not clamp.
func DiffToFrequency(d float32) uint32 {
	return offsetFrequency((float64(d) + 128.0) / 255.0 * 800)
}

// offsetFrequency truncates toward zero and adds the black level.
func offsetFrequency(v float64) uint32 {
	return uint32(int64(FreqBlack) + int64(v))
}
