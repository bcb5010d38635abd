package source

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// LoadImage decodes a PNG, JPEG, GIF, BMP or WebP file.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// Fit scales img to fit inside w x h, keeping its aspect ratio, and
// centers it on a black background.
func Fit(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	sb := img.Bounds()
	if sb.Empty() {
		return dst
	}
	sw, sh := sb.Dx(), sb.Dy()
	tw, th := w, sh*w/sw
	if th > h {
		tw, th = sw*h/sh, h
	}
	x0, y0 := (w-tw)/2, (h-th)/2
	draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+tw, y0+th), img, sb, draw.Src, nil)
	return dst
}
