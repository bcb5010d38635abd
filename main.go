package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"sstvlive/config"
	"sstvlive/metrics"
	"sstvlive/ptt"
	"sstvlive/publish"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(4)).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8))
	valueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(6))
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(2))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(1))
)

func main() {
	cfg, err := config.New(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := run(cfg); err != nil {
		fmt.Println(errStyle.Render("FAILED") + " " + err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	printBanner(cfg)

	// 1. Stop on Ctrl+C; a line pair in progress finishes first.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Supporting services
	m := metrics.New()
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Listen); err != nil {
				log.Printf("[Metrics] %v", err)
			}
		}()
	}

	var pub publish.Publisher = publish.Nop{}
	if cfg.MQTT.Broker != "" {
		p, err := publish.NewMQTTPublisher(&cfg.MQTT)
		if err != nil {
			return err
		}
		pub = p
	}
	defer pub.Close()

	keyer, err := ptt.Open(&cfg.PTT)
	if err != nil {
		return err
	}
	defer keyer.Close()

	// 3. Tone output and transmitter
	st, err := newStation(cfg, m, keyer, pub)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("Failed to close output: %v", err)
		}
	}()

	// 4. Send once, or repeat as a beacon until stopped
	for n := 1; ; n++ {
		start := time.Now()
		err := st.cycle(ctx)
		switch {
		case err == nil:
			fmt.Println(okStyle.Render("SENT") + " " + labelStyle.Render(fmt.Sprintf("#%d in %v", n, time.Since(start).Round(time.Second))))
		case ctx.Err() != nil:
			log.Println("Shutting down...")
			return nil
		case cfg.Beacon.Interval == 0:
			return err
		default:
			fmt.Println(errStyle.Render("FAILED") + " " + err.Error())
		}

		if cfg.Beacon.Interval == 0 {
			return nil
		}
		log.Printf("Next transmission at %s", time.Now().Add(cfg.Beacon.Interval).Format("15:04:05"))
		select {
		case <-ctx.Done():
			log.Println("Shutting down...")
			return nil
		case <-time.After(cfg.Beacon.Interval):
		}
	}
}

func printBanner(cfg *config.Config) {
	field := func(label, value string) string {
		return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
	}
	out := cfg.Output.Kind
	switch cfg.Output.Kind {
	case "wav":
		out += " " + cfg.Output.WAVPath
	case "hackrf":
		out += fmt.Sprintf(" %.3f MHz", cfg.HackRF.Frequency)
	}
	fmt.Println(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("SSTV Live - PD120"),
		field("callsign", cfg.Station.Callsign),
		field("source", cfg.Source.Kind),
		field("output", out),
	))
}
