package video

import (
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/exec"
)

// FFplay represents the FFplay preview process and its input pipe.
type FFplay struct {
	Pipe io.WriteCloser
	Cmd  *exec.Cmd
}

// StartPreview launches FFplay configured for a raw 640x496 rgb24 stream.
func StartPreview(title string) (*FFplay, error) {
	ffplayPath, err := exec.LookPath("ffplay")
	if err != nil {
		return nil, fmt.Errorf("ffplay not found in your PATH")
	}

	args := []string{
		"-f", "rawvideo",
		"-pixel_format", "rgb24",
		"-video_size", fmt.Sprintf("%dx%d", Width, Height),
		"-i", "-", // Read from stdin
		"-window_title", title,
		"-loglevel", "error",
	}

	cmd := exec.Command(ffplayPath, args...)
	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	log.Println("FFplay process started. Preview should appear in a new window.")
	return &FFplay{Pipe: stdinPipe, Cmd: cmd}, nil
}

// WriteFrame sends one frame. img is cropped or padded to the canvas size.
func (f *FFplay) WriteFrame(img image.Image) error {
	_, err := f.Pipe.Write(RGB24(img))
	return err
}

// Stop safely terminates the FFplay process.
func (f *FFplay) Stop() {
	f.Pipe.Close()
	f.Cmd.Process.Kill()
	f.Cmd.Wait()
}

// RGB24 packs the top-left Width x Height pixels of img as rgb24.
func RGB24(img image.Image) []byte {
	buf := make([]byte, Width*Height*3)
	r := img.Bounds()
	for y := 0; y < Height && r.Min.Y+y < r.Max.Y; y++ {
		for x := 0; x < Width && r.Min.X+x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(r.Min.X+x, r.Min.Y+y).RGBA()
			i := (y*Width + x) * 3
			buf[i], buf[i+1], buf[i+2] = byte(cr>>8), byte(cg>>8), byte(cb>>8)
		}
	}
	return buf
}
