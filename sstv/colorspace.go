package sstv

import "image"

// Surface is a read-only grid of packed 5-6-5 color samples.
type Surface interface {
	Bounds() image.Rectangle
	Pixel565(x, y int) uint16
}

// Channels holds the SSTV luminance and color difference values of one pixel.
type Channels struct {
	Y  float32
	RY float32
	BY float32
}

// Unpack565 rescales each component of a packed 5-6-5 color to 8 bits
// using its own bit width.
func Unpack565(p uint16) (r, g, b uint8) {
	r5 := uint32(p>>11) & 0x1f
	g6 := uint32(p>>5) & 0x3f
	b5 := uint32(p) & 0x1f
	return uint8(r5 * 255 / 31), uint8(g6 * 255 / 63), uint8(b5 * 255 / 31)
}

// Pack565 truncates an 8-bit color to the 5-6-5 layout.
func Pack565(r, g, b uint8) uint16 {
	return uint16(r&0xf8)<<8 | uint16(g&0xfc)<<3 | uint16(b)>>3
}

// SampleRGB8 reads the pixel at (x, y). Callers keep coordinates inside the surface.
func SampleRGB8(s Surface, x, y int) (r, g, b uint8) {
	return Unpack565(s.Pixel565(x, y))
}

// ToChannels converts an 8-bit RGB color to Y, R-Y and B-Y.
//
// Y is narrowed to float32 before the differences are taken so that grey
// inputs produce exactly zero color difference.
func ToChannels(r, g, b uint8) Channels {
	y := float32(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
	return Channels{
		Y:  y,
		RY: float32(0.713 * (float64(r) - float64(y))),
		BY: float32(0.564 * (float64(b) - float64(y))),
	}
}

func channelsAt(s Surface, x, y int) Channels {
	return ToChannels(SampleRGB8(s, x, y))
}
