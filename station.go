package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"time"

	"sstvlive/config"
	"sstvlive/decoder"
	"sstvlive/metrics"
	"sstvlive/ptt"
	"sstvlive/publish"
	"sstvlive/sdr"
	"sstvlive/source"
	"sstvlive/sstv"
	"sstvlive/tone"
	"sstvlive/video"
)

const (
	overlayMargin  = 6
	colorTopText   = 0xffff // white
	colorBtmText   = 0xffe0 // yellow
	colorOutline   = 0x0000
	previewEventsN = 1 << 20
)

// station ties a picture source, a transmitter and the radio around it.
type station struct {
	cfg     *config.Config
	tx      *sstv.Transmitter
	keyer   ptt.Keyer
	pub     publish.Publisher
	metrics *metrics.Metrics

	drain   time.Duration  // output latency held before unkeying
	rec     *tone.Recorder // set when previewing
	preview *video.FFplay
	closers []func() error
}

// newStation builds the emitter, clock and timer for the configured output.
func newStation(cfg *config.Config, m *metrics.Metrics, keyer ptt.Keyer, pub publish.Publisher) (*station, error) {
	st := &station{cfg: cfg, keyer: keyer, pub: pub, metrics: m}

	var (
		emitter sstv.Emitter
		clock   sstv.Clock
		timer   sstv.Timer
	)
	switch cfg.Output.Kind {
	case "wav":
		vc := &sstv.VirtualClock{}
		clock, timer = vc, &sstv.VirtualTimer{Clock: vc}
		f, err := os.Create(cfg.Output.WAVPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create WAV file: %w", err)
		}
		w, err := tone.NewWAVWriter(f, vc, cfg.Output.SampleRate)
		if err != nil {
			f.Close()
			return nil, err
		}
		st.closers = append(st.closers, f.Close, w.Close)
		emitter = w
		log.Printf("Rendering to %s at %d Hz.", cfg.Output.WAVPath, cfg.Output.SampleRate)

	case "audio":
		clock, timer = sstv.NewWallClock(), st.liveTimer()
		a, err := tone.NewAudio(clock, cfg.Output.SampleRate)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, a.Close)
		st.drain = a.Latency()
		emitter = a

	case "hackrf":
		clock, timer = sstv.NewWallClock(), st.liveTimer()
		e, err := sdr.Open(&cfg.HackRF, clock)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, e.Close)
		st.drain = e.Latency()
		emitter = e

	default:
		return nil, fmt.Errorf("unknown output %q", cfg.Output.Kind)
	}

	if cfg.Output.Preview {
		st.rec = tone.NewRecorder(clock, previewEventsN)
		emitter = tone.Tee{emitter, st.rec}
	}

	opts := []sstv.Option{sstv.WithObserver(m)}
	if cfg.Timing.Watchdog > 0 {
		opts = append(opts, sstv.WithWatchdog(cfg.Timing.Watchdog))
	}
	st.tx = sstv.NewTransmitter(emitter, clock, timer, opts...)
	return st, nil
}

func (st *station) liveTimer() sstv.Timer {
	if st.cfg.Timing.Timer == "ticker" {
		return &sstv.TickerTimer{}
	}
	return &sstv.SpinTimer{Late: st.metrics.TimerLate}
}

// picture composes the frame to send: background, source picture, color
// bar strip and the overlay texts.
func (st *station) picture(ctx context.Context) (*video.Canvas, error) {
	c := video.NewCanvas()
	src := st.cfg.Source

	switch src.Kind {
	case "test":
		video.FillColorBars(c)
	case "file":
		img, err := source.LoadImage(src.Image)
		if err != nil {
			return nil, err
		}
		c.Compose(source.Fit(img, video.Width, video.PictureHeight))
	case "camera":
		log.Println("Taking a picture...")
		img, err := source.CaptureSnapshot(ctx, &src)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("Camera capture failed, sending background only: %v", err)
		} else {
			c.Compose(img)
		}
	}

	if st.cfg.Station.ColorBar {
		if err := video.DrawColorBar(c, 0, video.PictureHeight); err != nil {
			return nil, err
		}
	}

	s := st.cfg.Station
	const ascent, descent = 11, 2 // basicfont.Face7x13
	if s.TopText != "" {
		video.DrawText(c, s.TopText, overlayMargin, overlayMargin+ascent*s.TextScale, s.TextScale, colorTopText, colorOutline)
	}
	if s.BottomText != "" {
		x := max(video.Width-overlayMargin-video.TextWidth(s.BottomText, s.TextScale), overlayMargin)
		y := video.PictureHeight - overlayMargin - descent*s.TextScale
		video.DrawText(c, s.BottomText, x, y, s.TextScale, colorBtmText, colorOutline)
	}
	return c, nil
}

// cycle takes one picture and sends it with PTT keyed.
func (st *station) cycle(ctx context.Context) error {
	pic, err := st.picture(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare picture: %w", err)
	}

	mode := st.tx.Mode()
	ev := publish.Start(mode.Name, st.cfg.Station.Callsign, time.Now())
	if err := st.pub.Publish(ev); err != nil {
		log.Printf("[MQTT] %v", err)
	}
	st.metrics.Begin(time.Now())
	if st.rec != nil {
		st.rec.Reset()
	}

	err = st.transmit(ctx, pic)

	st.metrics.End(err)
	if perr := st.pub.Publish(ev.Finish(metrics.Result(err), err, time.Now())); perr != nil {
		log.Printf("[MQTT] %v", perr)
	}
	if err != nil {
		return err
	}
	if st.rec != nil {
		st.showPreview(mode, pic)
	}
	return nil
}

func (st *station) transmit(ctx context.Context, pic *video.Canvas) error {
	log.Println("Starting SSTV transmission - Activating PTT")
	if err := st.keyer.Key(ctx); err != nil {
		return fmt.Errorf("failed to key PTT: %w", err)
	}
	err := st.tx.Transmit(ctx, pic)
	// Let the buffered tail of the picture reach the air.
	time.Sleep(st.drain)
	if uerr := st.keyer.Unkey(); uerr != nil {
		log.Printf("[PTT] %v", uerr)
	}
	log.Println("SSTV completed - Deactivating PTT")
	return err
}

// showPreview decodes what was just sent and shows it. The composed
// picture is shown instead when nothing could be decoded.
func (st *station) showPreview(mode sstv.Mode, pic *video.Canvas) {
	var frame image.Image
	img, err := decoder.Decode(st.rec.Events(), mode)
	switch {
	case img != nil:
		frame = img
		if err != nil {
			log.Printf("Preview decode incomplete: %v", err)
		}
	default:
		log.Printf("Preview decode failed: %v", err)
		frame = pic.RGBA()
	}
	if st.preview == nil {
		p, err := video.StartPreview("SSTV Live - decoded")
		if err != nil {
			log.Printf("Preview unavailable: %v", err)
			return
		}
		st.preview = p
	}
	if err := st.preview.WriteFrame(frame); err != nil {
		log.Printf("Preview write failed: %v", err)
	}
}

// Close releases the output in reverse order of creation.
func (st *station) Close() error {
	if st.preview != nil {
		st.preview.Stop()
	}
	var first error
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
