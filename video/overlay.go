package video

import (
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var outlineOffsets = [8]image.Point{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1},
}

// DrawText writes text with its baseline at y, magnified by scale, in
// color fg over a one pixel outline. Text running off the canvas is
// clipped.
func DrawText(c *Canvas, text string, x, y, scale int, fg, outline uint16) {
	if text == "" {
		return
	}
	if scale < 1 {
		scale = 1
	}
	mask, ascent := textMask(text)
	for _, o := range outlineOffsets {
		blit(c, mask, x+o.X, y+o.Y-ascent*scale, scale, outline)
	}
	blit(c, mask, x, y-ascent*scale, scale, fg)
}

// TextWidth returns the width in pixels of text at scale.
func TextWidth(text string, scale int) int {
	d := &font.Drawer{Face: basicfont.Face7x13}
	return d.MeasureString(text).Ceil() * max(scale, 1)
}

// textMask renders text at 1:1 into an alpha mask.
func textMask(text string) (*image.Alpha, int) {
	face := basicfont.Face7x13
	m := face.Metrics()
	ascent := m.Ascent.Ceil()

	d := &font.Drawer{Face: face}
	mask := image.NewAlpha(image.Rect(0, 0, d.MeasureString(text).Ceil(), ascent+m.Descent.Ceil()))
	d.Dst = mask
	d.Src = image.Opaque
	d.Dot = fixed.P(0, ascent)
	d.DrawString(text)
	return mask, ascent
}

func blit(c *Canvas, mask *image.Alpha, x, y, scale int, p uint16) {
	r := mask.Bounds()
	for my := r.Min.Y; my < r.Max.Y; my++ {
		for mx := r.Min.X; mx < r.Max.X; mx++ {
			if mask.AlphaAt(mx, my).A < 0x80 {
				continue
			}
			px, py := x+mx*scale, y+my*scale
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					c.SetPixel565(px+dx, py+dy, p)
				}
			}
		}
	}
}
