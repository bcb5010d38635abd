package video

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"sstvlive/sstv"
)

// Canvas geometry. The bottom rows below PictureHeight hold the color bar.
const (
	Width         = 640
	Height        = 496
	PictureHeight = 480
)

// Background is the fill color behind the picture.
const Background uint16 = 0x29ee

// RGB565 is a packed 5-6-5 color.
type RGB565 uint16

func (c RGB565) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := sstv.Unpack565(uint16(c))
	return uint32(r8) * 0x101, uint32(g8) * 0x101, uint32(b8) * 0x101, 0xffff
}

// RGB565Model converts any color to RGB565 by truncation.
var RGB565Model = color.ModelFunc(func(c color.Color) color.Color {
	if v, ok := c.(RGB565); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return RGB565(sstv.Pack565(uint8(r>>8), uint8(g>>8), uint8(b>>8)))
})

// Canvas is the 640x496 RGB565 picture handed to the transmitter. It
// satisfies sstv.Surface and draw.Image.
type Canvas struct {
	pix []uint16
}

// NewCanvas returns a canvas filled with Background.
func NewCanvas() *Canvas {
	c := &Canvas{pix: make([]uint16, Width*Height)}
	c.Fill(Background)
	return c
}

func (c *Canvas) Bounds() image.Rectangle { return image.Rect(0, 0, Width, Height) }

func (c *Canvas) ColorModel() color.Model { return RGB565Model }

func (c *Canvas) Pixel565(x, y int) uint16 {
	return c.pix[y*Width+x]
}

// SetPixel565 stores a packed color; out of range coordinates are ignored.
func (c *Canvas) SetPixel565(x, y int, p uint16) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	c.pix[y*Width+x] = p
}

func (c *Canvas) At(x, y int) color.Color {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return RGB565(0)
	}
	return RGB565(c.pix[y*Width+x])
}

func (c *Canvas) Set(x, y int, col color.Color) {
	c.SetPixel565(x, y, uint16(RGB565Model.Convert(col).(RGB565)))
}

// Fill sets every pixel to p.
func (c *Canvas) Fill(p uint16) {
	for i := range c.pix {
		c.pix[i] = p
	}
}

// FillRect sets the pixels of r, clipped to the canvas, to p.
func (c *Canvas) FillRect(r image.Rectangle, p uint16) {
	r = r.Intersect(c.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := c.pix[y*Width:]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = p
		}
	}
}

// Compose copies img into the top-left corner of the canvas. Anything
// outside the picture area is left untouched.
func (c *Canvas) Compose(img image.Image) {
	r := img.Bounds()
	dst := image.Rect(0, 0, r.Dx(), r.Dy()).Intersect(image.Rect(0, 0, Width, PictureHeight))
	draw.Draw(c, dst, img, r.Min, draw.Src)
}

// RGBA returns a copy of the canvas as an 8-bit image.
func (c *Canvas) RGBA() *image.RGBA {
	out := image.NewRGBA(c.Bounds())
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			r, g, b := sstv.Unpack565(c.pix[y*Width+x])
			i := out.PixOffset(x, y)
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = r, g, b, 0xff
		}
	}
	return out
}
