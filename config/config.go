package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values.
type Config struct {
	Station Station `yaml:"station"`
	Source  Source  `yaml:"source"`
	Output  Output  `yaml:"output"`
	Timing  Timing  `yaml:"timing"`
	HackRF  HackRF  `yaml:"hackrf"`
	PTT     PTT     `yaml:"ptt"`
	Metrics Metrics `yaml:"metrics"`
	MQTT    MQTT    `yaml:"mqtt"`
	Beacon  Beacon  `yaml:"beacon"`

	// File is the YAML file the values were loaded from, if any.
	File string `yaml:"-"`
}

// Station holds the overlay texts burned into every picture.
type Station struct {
	Callsign   string `yaml:"callsign"`
	TopText    string `yaml:"top_text"`
	BottomText string `yaml:"bottom_text"`
	TextScale  int    `yaml:"text_scale"`
	ColorBar   bool   `yaml:"color_bar"`
}

// Source selects where the picture comes from.
type Source struct {
	Kind       string `yaml:"kind"` // camera, file or test
	Device     string `yaml:"device"`
	Image      string `yaml:"image"`
	SkipFrames int    `yaml:"skip_frames"`
}

// Output selects where the tones go.
type Output struct {
	Kind       string `yaml:"kind"` // wav, audio or hackrf
	WAVPath    string `yaml:"wav_path"`
	SampleRate int    `yaml:"sample_rate"`
	Preview    bool   `yaml:"preview"`
}

// Timing selects the pixel timer used for live outputs.
type Timing struct {
	Timer    string        `yaml:"timer"` // spin or ticker
	Watchdog time.Duration `yaml:"watchdog"`
}

// HackRF configures FM transmission through a HackRF One.
type HackRF struct {
	Frequency  float64 `yaml:"frequency"` // MHz
	SampleRate float64 `yaml:"sample_rate"`
	Gain       int     `yaml:"gain"`
	Amp        bool    `yaml:"amp"`
	Deviation  float64 `yaml:"deviation"`   // Hz
	AudioLimit float64 `yaml:"audio_limit"` // Hz, low-pass cutoff before the modulator
}

// PTT configures radio keying over a serial port's control lines.
type PTT struct {
	Port string        `yaml:"port"`
	RTS  bool          `yaml:"rts"`
	DTR  bool          `yaml:"dtr"`
	Lead time.Duration `yaml:"lead"`
}

// Metrics configures the Prometheus listener.
type Metrics struct {
	Listen string `yaml:"listen"`
}

// MQTT configures transmission event publishing.
type MQTT struct {
	Broker   string `yaml:"broker"`
	Prefix   string `yaml:"prefix"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Beacon repeats the capture and transmit cycle.
type Beacon struct {
	Interval time.Duration `yaml:"interval"` // 0 sends once
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Station: Station{Callsign: "NOCALL", TextScale: 3, ColorBar: true},
		Source:  Source{Kind: "test", SkipFrames: 5},
		Output:  Output{Kind: "wav", WAVPath: "sstv.wav", SampleRate: 48000},
		Timing:  Timing{Timer: "spin"},
		HackRF: HackRF{
			Frequency:  144.5,
			SampleRate: 2_000_000,
			Gain:       30,
			Deviation:  5000,
			AudioLimit: 3000,
		},
		PTT:  PTT{RTS: true, Lead: 250 * time.Millisecond},
		MQTT: MQTT{Prefix: "sstv", ClientID: "sstvlive"},
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.File = filename
	return cfg, nil
}

func bind(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.File, "config", "c", cfg.File, "YAML configuration file")

	fs.StringVar(&cfg.Station.Callsign, "callsign", cfg.Station.Callsign, "Callsign to overlay on the picture")
	fs.StringVar(&cfg.Station.TopText, "top-text", cfg.Station.TopText, "Text at the top of the picture (default: callsign)")
	fs.StringVar(&cfg.Station.BottomText, "bottom-text", cfg.Station.BottomText, "Text at the bottom of the picture")
	fs.IntVar(&cfg.Station.TextScale, "text-scale", cfg.Station.TextScale, "Overlay text magnification")
	fs.BoolVar(&cfg.Station.ColorBar, "color-bar", cfg.Station.ColorBar, "Draw the color bar strip under the picture")

	fs.StringVarP(&cfg.Source.Kind, "source", "s", cfg.Source.Kind, "Picture source (camera, file, test)")
	fs.StringVar(&cfg.Source.Device, "device", cfg.Source.Device, "Video device name or index (OS-dependent)")
	fs.StringVarP(&cfg.Source.Image, "image", "i", cfg.Source.Image, "Image file for the file source")
	fs.IntVar(&cfg.Source.SkipFrames, "skip-frames", cfg.Source.SkipFrames, "Camera frames to discard before the snapshot")

	fs.StringVarP(&cfg.Output.Kind, "output", "o", cfg.Output.Kind, "Tone output (wav, audio, hackrf)")
	fs.StringVarP(&cfg.Output.WAVPath, "wav", "w", cfg.Output.WAVPath, "WAV file for the wav output")
	fs.IntVar(&cfg.Output.SampleRate, "sample-rate", cfg.Output.SampleRate, "Audio sample rate in Hz")
	fs.BoolVar(&cfg.Output.Preview, "preview", cfg.Output.Preview, "Show the decoded picture with ffplay")

	fs.StringVar(&cfg.Timing.Timer, "timer", cfg.Timing.Timer, "Pixel timer for live outputs (spin, ticker)")
	fs.DurationVar(&cfg.Timing.Watchdog, "watchdog", cfg.Timing.Watchdog, "Abort a scan segment after this long (0 = automatic)")

	fs.Float64VarP(&cfg.HackRF.Frequency, "freq", "f", cfg.HackRF.Frequency, "Transmit frequency in MHz")
	fs.Float64Var(&cfg.HackRF.SampleRate, "hackrf-sample-rate", cfg.HackRF.SampleRate, "HackRF sample rate in samples/s")
	fs.IntVarP(&cfg.HackRF.Gain, "gain", "g", cfg.HackRF.Gain, "TX VGA gain (0-47)")
	fs.BoolVar(&cfg.HackRF.Amp, "amp", cfg.HackRF.Amp, "Enable the HackRF RF amplifier")
	fs.Float64Var(&cfg.HackRF.Deviation, "deviation", cfg.HackRF.Deviation, "FM deviation in Hz")
	fs.Float64Var(&cfg.HackRF.AudioLimit, "audio-limit", cfg.HackRF.AudioLimit, "Audio low-pass cutoff in Hz")

	fs.StringVar(&cfg.PTT.Port, "ptt", cfg.PTT.Port, "Serial port used for PTT (empty disables)")
	fs.BoolVar(&cfg.PTT.RTS, "ptt-rts", cfg.PTT.RTS, "Key PTT with RTS")
	fs.BoolVar(&cfg.PTT.DTR, "ptt-dtr", cfg.PTT.DTR, "Key PTT with DTR")
	fs.DurationVar(&cfg.PTT.Lead, "ptt-lead", cfg.PTT.Lead, "Delay between keying and the first tone")

	fs.StringVar(&cfg.Metrics.Listen, "metrics", cfg.Metrics.Listen, "Prometheus listen address (empty disables)")

	fs.StringVar(&cfg.MQTT.Broker, "mqtt", cfg.MQTT.Broker, "MQTT broker URL (empty disables)")
	fs.StringVar(&cfg.MQTT.Prefix, "mqtt-prefix", cfg.MQTT.Prefix, "MQTT topic prefix")

	fs.DurationVarP(&cfg.Beacon.Interval, "interval", "r", cfg.Beacon.Interval, "Repeat the transmission at this interval (0 = once)")
}

// New creates a Config from command-line arguments. When --config names a
// file its values replace the defaults, and flags given on the command
// line override the file.
func New(args []string) (*Config, error) {
	cfg := Default()
	fs := pflag.NewFlagSet("sstvlive", pflag.ContinueOnError)
	bind(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.File != "" {
		fileCfg, err := Load(cfg.File)
		if err != nil {
			return nil, err
		}
		over := pflag.NewFlagSet("override", pflag.ContinueOnError)
		bind(over, fileCfg)
		var setErr error
		fs.Visit(func(f *pflag.Flag) {
			if err := over.Set(f.Name, f.Value.String()); err != nil && setErr == nil {
				setErr = fmt.Errorf("flag --%s: %w", f.Name, err)
			}
		})
		if setErr != nil {
			return nil, setErr
		}
		cfg = fileCfg
	}

	if cfg.Station.TopText == "" {
		cfg.Station.TopText = cfg.Station.Callsign
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ErrInvalid wraps every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks option values and combinations.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "camera", "test":
	case "file":
		if c.Source.Image == "" {
			return fmt.Errorf("%w: file source needs --image", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalid, c.Source.Kind)
	}

	switch c.Output.Kind {
	case "wav":
		if c.Output.WAVPath == "" {
			return fmt.Errorf("%w: wav output needs --wav", ErrInvalid)
		}
		if c.Beacon.Interval > 0 {
			return fmt.Errorf("%w: beacon mode needs a live output", ErrInvalid)
		}
	case "audio", "hackrf":
	default:
		return fmt.Errorf("%w: unknown output %q", ErrInvalid, c.Output.Kind)
	}
	if c.Output.SampleRate < 8000 {
		return fmt.Errorf("%w: sample rate %d Hz is below 8000", ErrInvalid, c.Output.SampleRate)
	}

	switch c.Timing.Timer {
	case "spin", "ticker":
	default:
		return fmt.Errorf("%w: unknown timer %q", ErrInvalid, c.Timing.Timer)
	}
	if c.Timing.Watchdog < 0 {
		return fmt.Errorf("%w: negative watchdog", ErrInvalid)
	}

	if c.HackRF.Gain < 0 || c.HackRF.Gain > 47 {
		return fmt.Errorf("%w: TX VGA gain %d out of range 0-47", ErrInvalid, c.HackRF.Gain)
	}
	if c.HackRF.Frequency <= 0 {
		return fmt.Errorf("%w: transmit frequency must be positive", ErrInvalid)
	}
	if c.HackRF.SampleRate < 2_000_000 || c.HackRF.SampleRate > 20_000_000 {
		return fmt.Errorf("%w: HackRF sample rate %.0f out of range 2-20 Msps", ErrInvalid, c.HackRF.SampleRate)
	}
	if c.HackRF.Deviation <= 0 || c.HackRF.AudioLimit <= 0 {
		return fmt.Errorf("%w: deviation and audio limit must be positive", ErrInvalid)
	}

	if c.PTT.Port != "" && !c.PTT.RTS && !c.PTT.DTR {
		return fmt.Errorf("%w: PTT port set but neither RTS nor DTR selected", ErrInvalid)
	}
	if c.Station.TextScale < 1 {
		return fmt.Errorf("%w: text scale must be at least 1", ErrInvalid)
	}
	return nil
}
