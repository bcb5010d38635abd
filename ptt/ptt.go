// Package ptt keys a radio transmitter around each SSTV transmission.
package ptt

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"

	"sstvlive/config"
)

// Keyer switches a transmitter between receive and transmit.
type Keyer interface {
	// Key switches to transmit and returns once the radio is ready for audio.
	Key(ctx context.Context) error
	// Unkey switches back to receive.
	Unkey() error
	Close() error
}

// Nop is used when no PTT line is configured.
type Nop struct{}

func (Nop) Key(context.Context) error { return nil }
func (Nop) Unkey() error              { return nil }
func (Nop) Close() error              { return nil }

// lines is the part of serial.Port used for keying.
type lines interface {
	SetRTS(bool) error
	SetDTR(bool) error
	Close() error
}

// Serial keys a radio through the RTS and/or DTR lines of a serial port,
// as most USB CAT and data interfaces expect.
type Serial struct {
	port lines
	name string
	rts  bool
	dtr  bool
	lead time.Duration

	mu    sync.Mutex
	keyed bool
}

// Open returns the keyer configured by cfg: Nop when no port is set.
func Open(cfg *config.PTT) (Keyer, error) {
	if cfg.Port == "" {
		return Nop{}, nil
	}
	mode := &serial.Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}
	s := newSerial(port, cfg)
	// Opening a port may assert the lines; start unkeyed.
	if err := s.set(false); err != nil {
		port.Close()
		return nil, err
	}
	log.Printf("[PTT] Using %s (RTS=%t DTR=%t, lead %v)", cfg.Port, cfg.RTS, cfg.DTR, cfg.Lead)
	return s, nil
}

func newSerial(port lines, cfg *config.PTT) *Serial {
	return &Serial{port: port, name: cfg.Port, rts: cfg.RTS, dtr: cfg.DTR, lead: cfg.Lead}
}

func (s *Serial) set(on bool) error {
	if s.rts {
		if err := s.port.SetRTS(on); err != nil {
			return fmt.Errorf("failed to set RTS on %s: %w", s.name, err)
		}
	}
	if s.dtr {
		if err := s.port.SetDTR(on); err != nil {
			return fmt.Errorf("failed to set DTR on %s: %w", s.name, err)
		}
	}
	return nil
}

// Key asserts the PTT lines and waits for the lead time.
func (s *Serial) Key(ctx context.Context) error {
	s.mu.Lock()
	err := s.set(true)
	s.keyed = err == nil
	s.mu.Unlock()
	if err != nil {
		return err
	}
	log.Println("[PTT] Keyed")

	if s.lead <= 0 {
		return nil
	}
	t := time.NewTimer(s.lead)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		s.Unkey()
		return ctx.Err()
	}
}

// Unkey releases the PTT lines.
func (s *Serial) Unkey() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.keyed {
		return nil
	}
	if err := s.set(false); err != nil {
		return err
	}
	s.keyed = false
	log.Println("[PTT] Unkeyed")
	return nil
}

// Close unkeys and closes the port.
func (s *Serial) Close() error {
	unkeyErr := s.Unkey()
	if err := s.port.Close(); err != nil {
		return err
	}
	return unkeyErr
}
