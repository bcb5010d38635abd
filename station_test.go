package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"sstvlive/config"
	"sstvlive/metrics"
	"sstvlive/ptt"
	"sstvlive/publish"
	"sstvlive/sstv"
	"sstvlive/video"
)

type recordingPublisher struct{ events []publish.Event }

func (p *recordingPublisher) Publish(e publish.Event) error {
	p.events = append(p.events, e)
	return nil
}
func (p *recordingPublisher) Close() {}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Output.WAVPath = filepath.Join(t.TempDir(), "out.wav")
	cfg.Output.SampleRate = 8000
	cfg.Station.TopText = "N0CALL"
	cfg.Station.BottomText = "JN45"
	cfg.Station.TextScale = 2
	return cfg
}

func TestStation_Picture(t *testing.T) {
	cfg := testConfig(t)
	st := &station{cfg: cfg}
	c, err := st.picture(context.Background())
	if err != nil {
		t.Fatalf("picture: %v", err)
	}
	if c.Bounds().Dx() != video.Width || c.Bounds().Dy() != video.Height {
		t.Fatalf("bounds = %v", c.Bounds())
	}
	// Color bar strip is drawn under the picture.
	if got := c.Pixel565(video.BarWidth/2, video.PictureHeight+1); got == video.Background {
		t.Fatalf("strip pixel = %#04x, want a bar color", got)
	}
	// Top text left some white pixels in the first rows.
	white := 0
	for y := 0; y < 40; y++ {
		for x := 0; x < 200; x++ {
			if c.Pixel565(x, y) == colorTopText {
				white++
			}
		}
	}
	if white == 0 {
		t.Fatal("top text not drawn")
	}
	// Bottom text is right-aligned above the strip.
	yellow := 0
	for y := video.PictureHeight - 40; y < video.PictureHeight; y++ {
		for x := video.Width - 100; x < video.Width; x++ {
			if c.Pixel565(x, y) == colorBtmText {
				yellow++
			}
		}
	}
	if yellow == 0 {
		t.Fatal("bottom text not drawn at the right edge")
	}
}

func TestStation_PictureMissingFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.Kind = "file"
	cfg.Source.Image = filepath.Join(t.TempDir(), "missing.png")
	st := &station{cfg: cfg}
	if _, err := st.picture(context.Background()); err == nil {
		t.Fatal("expected error for missing image")
	}
}

func TestStation_CycleToWAV(t *testing.T) {
	if testing.Short() {
		t.Skip("renders a full PD120 transmission")
	}
	cfg := testConfig(t)
	m := metrics.New()
	pub := &recordingPublisher{}
	st, err := newStation(cfg, m, ptt.Nop{}, pub)
	if err != nil {
		t.Fatalf("newStation: %v", err)
	}
	if err := st.cycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(pub.events) != 2 || pub.events[0].State != publish.StateStarted || pub.events[1].State != publish.StateFinished {
		t.Fatalf("events = %+v", pub.events)
	}
	if pub.events[0].ID != pub.events[1].ID {
		t.Fatal("start and finish events have different ids")
	}

	if n, err := testutil.GatherAndCount(m.Registry(), "sstv_transmissions_total"); err != nil || n != 1 {
		t.Fatalf("transmission series = %d (%v), want 1", n, err)
	}

	f, err := os.Open(cfg.Output.WAVPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	want := int(sstv.PD120.Duration().Seconds() * float64(cfg.Output.SampleRate))
	if diff := len(buf.Data) - want; diff < -10 || diff > 10 {
		t.Fatalf("WAV has %d samples, want %d", len(buf.Data), want)
	}
}
