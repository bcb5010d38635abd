package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sstv.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew_Defaults(t *testing.T) {
	cfg, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Station.Callsign != "NOCALL" || cfg.Station.TopText != "NOCALL" {
		t.Errorf("station = %+v", cfg.Station)
	}
	if cfg.Output.Kind != "wav" || cfg.Output.SampleRate != 48000 {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Source.Kind != "test" {
		t.Errorf("source = %q", cfg.Source.Kind)
	}
}

func TestNew_Flags(t *testing.T) {
	cfg, err := New([]string{
		"--callsign", "IU2ABC",
		"-s", "file", "-i", "cat.png",
		"-o", "hackrf", "-f", "145.8", "-g", "20",
		"--interval", "10m",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Station.TopText != "IU2ABC" {
		t.Errorf("top text = %q, want callsign", cfg.Station.TopText)
	}
	if cfg.Source.Image != "cat.png" || cfg.HackRF.Frequency != 145.8 || cfg.HackRF.Gain != 20 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Beacon.Interval != 10*time.Minute {
		t.Errorf("interval = %v", cfg.Beacon.Interval)
	}
}

func TestNew_FileThenFlags(t *testing.T) {
	path := writeFile(t, `
station:
  callsign: IU2ABC
  bottom_text: "JN45"
output:
  kind: audio
  sample_rate: 44100
ptt:
  port: /dev/ttyUSB0
  lead: 500ms
`)
	cfg, err := New([]string{"--config", path, "--sample-rate", "22050"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.File != path {
		t.Errorf("File = %q", cfg.File)
	}
	if cfg.Station.Callsign != "IU2ABC" || cfg.Station.BottomText != "JN45" {
		t.Errorf("station = %+v", cfg.Station)
	}
	if cfg.Output.Kind != "audio" {
		t.Errorf("output kind = %q, want file value", cfg.Output.Kind)
	}
	if cfg.Output.SampleRate != 22050 {
		t.Errorf("sample rate = %d, want flag value", cfg.Output.SampleRate)
	}
	if cfg.PTT.Port != "/dev/ttyUSB0" || cfg.PTT.Lead != 500*time.Millisecond || !cfg.PTT.RTS {
		t.Errorf("ptt = %+v", cfg.PTT)
	}
	if cfg.HackRF.Gain != 30 {
		t.Errorf("unset file value lost its default: gain = %d", cfg.HackRF.Gain)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeFile(t, "station: [")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Source.Kind = "scanner" }},
		{"file without image", func(c *Config) { c.Source.Kind = "file" }},
		{"unknown output", func(c *Config) { c.Output.Kind = "lora" }},
		{"wav without path", func(c *Config) { c.Output.WAVPath = "" }},
		{"beacon to wav", func(c *Config) { c.Beacon.Interval = time.Minute }},
		{"low sample rate", func(c *Config) { c.Output.SampleRate = 4000 }},
		{"unknown timer", func(c *Config) { c.Timing.Timer = "sleep" }},
		{"gain too high", func(c *Config) { c.HackRF.Gain = 48 }},
		{"hackrf rate too low", func(c *Config) { c.HackRF.SampleRate = 1e6 }},
		{"ptt without line", func(c *Config) { c.PTT.Port = "COM3"; c.PTT.RTS = false }},
		{"zero text scale", func(c *Config) { c.Station.TextScale = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate = %v, want ErrInvalid", err)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestNew_BadFlag(t *testing.T) {
	if _, err := New([]string{"--gain", "loud"}); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := New([]string{"--output", "lora"}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}
