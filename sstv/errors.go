package sstv

import "errors"

var (
	// ErrNoSurface is returned when Transmit is called without a picture.
	ErrNoSurface = errors.New("sstv: no surface to transmit")
	// ErrSurfaceSize is returned when the picture does not match the mode.
	ErrSurfaceSize = errors.New("sstv: surface size does not match mode")
	// ErrInvalidMode is returned for a mode with odd height or no pixels.
	ErrInvalidMode = errors.New("sstv: invalid mode")
	// ErrTimerStart is returned when the pixel timer cannot be started.
	ErrTimerStart = errors.New("sstv: pixel timer failed to start")
	// ErrTimerStalled is returned when a scan segment does not complete in time.
	ErrTimerStalled = errors.New("sstv: pixel timer stalled")
	// ErrBusy is returned when a transmission is already in progress.
	ErrBusy = errors.New("sstv: transmission already in progress")
)
