package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"os/exec"
	"runtime"

	"sstvlive/config"
	"sstvlive/video"
)

// captureArgs returns the ffmpeg input arguments for the platform camera.
func captureArgs(goos, device string) ([]string, error) {
	switch goos {
	case "linux":
		if device == "" {
			device = "/dev/video0"
		}
		return []string{"-f", "v4l2", "-i", device}, nil
	case "darwin":
		if device == "" {
			device = "0"
		}
		return []string{"-f", "avfoundation", "-i", device}, nil
	case "windows":
		if device == "" {
			device = "Integrated Webcam"
		}
		return []string{"-f", "dshow", "-i", "video=" + device}, nil
	default:
		return nil, fmt.Errorf("unsupported OS: %s", goos)
	}
}

// snapshotArgs builds the full ffmpeg command line. The first skip frames
// are dropped because webcams tend to hand out a stale buffer first.
func snapshotArgs(goos string, cfg *config.Source) ([]string, error) {
	args, err := captureArgs(goos, cfg.Device)
	if err != nil {
		return nil, err
	}
	vf := fmt.Sprintf("select=gte(n\\,%d),scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		cfg.SkipFrames, video.Width, video.PictureHeight, video.Width, video.PictureHeight)
	return append(args,
		"-hide_banner", "-loglevel", "error",
		"-vf", vf,
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24", "-",
	), nil
}

// CaptureSnapshot grabs a single frame from the camera with FFmpeg and
// returns it as a 640x480 image.
func CaptureSnapshot(ctx context.Context, cfg *config.Source) (image.Image, error) {
	args, err := snapshotArgs(runtime.GOOS, cfg)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get FFmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start FFmpeg: %w", err)
	}
	log.Println("FFmpeg process started to capture a snapshot...")

	raw := make([]byte, video.Width*video.PictureHeight*3)
	_, readErr := io.ReadFull(stdout, raw)
	waitErr := cmd.Wait()
	if readErr != nil {
		if waitErr != nil {
			return nil, fmt.Errorf("FFmpeg capture failed: %w (%s)", waitErr, bytes.TrimSpace(stderr.Bytes()))
		}
		return nil, fmt.Errorf("error reading from FFmpeg: %w", readErr)
	}

	return FromRGB24(raw, video.Width, video.PictureHeight), nil
}

// FromRGB24 wraps packed rgb24 bytes as an image.
func FromRGB24(raw []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Pix[i*4] = raw[i*3]
		img.Pix[i*4+1] = raw[i*3+1]
		img.Pix[i*4+2] = raw[i*3+2]
		img.Pix[i*4+3] = 0xff
	}
	return img
}
