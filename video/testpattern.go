package video

import (
	"fmt"
	"image"

	"sstvlive/sstv"
)

// smpteColors are the eight bar colors in SMPTE order.
var smpteColors = [8][3]uint8{
	{255, 255, 255}, // White
	{255, 255, 0},   // Yellow
	{0, 255, 255},   // Cyan
	{0, 255, 0},     // Green
	{255, 0, 255},   // Magenta
	{255, 0, 0},     // Red
	{0, 0, 255},     // Blue
	{0, 0, 0},       // Black
}

// Color bar strip geometry.
const (
	BarWidth  = 10
	BarHeight = 16
	BarCount  = 64
)

// FillColorBars fills the picture area with a standard SMPTE color bars pattern.
func FillColorBars(c *Canvas) {
	// 75% bars: 7 vertical stripes
	barColors := [7][3]uint8{
		{192, 192, 192}, // Gray
		{192, 192, 0},   // Yellow
		{0, 192, 192},   // Cyan
		{0, 192, 0},     // Green
		{192, 0, 192},   // Magenta
		{192, 0, 0},     // Red
		{0, 0, 192},     // Blue
	}
	barWidth := Width / 7
	for i, bc := range barColors {
		x0 := i * barWidth
		x1 := x0 + barWidth
		if i == len(barColors)-1 {
			x1 = Width
		}
		c.FillRect(image.Rect(x0, 0, x1, PictureHeight), sstv.Pack565(bc[0], bc[1], bc[2]))
	}
}

// DrawColorBar draws 64 bars cycling through the SMPTE colors starting at
// (x, y). It fails if the strip does not fit.
func DrawColorBar(c *Canvas, x, y int) error {
	strip := image.Rect(x, y, x+BarCount*BarWidth, y+BarHeight)
	if !strip.In(c.Bounds()) {
		return fmt.Errorf("color bar %v does not fit canvas %v", strip, c.Bounds())
	}
	for i := 0; i < BarCount; i++ {
		sc := smpteColors[i%len(smpteColors)]
		bar := image.Rect(x+i*BarWidth, y, x+(i+1)*BarWidth, y+BarHeight)
		c.FillRect(bar, sstv.Pack565(sc[0], sc[1], sc[2]))
	}
	return nil
}
