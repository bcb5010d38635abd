package ptt

import (
	"context"
	"errors"
	"testing"
	"time"

	"sstvlive/config"
)

type fakeLines struct {
	rts, dtr []bool
	failRTS  error
	closed   bool
}

func (f *fakeLines) SetRTS(on bool) error {
	if f.failRTS != nil {
		return f.failRTS
	}
	f.rts = append(f.rts, on)
	return nil
}

func (f *fakeLines) SetDTR(on bool) error {
	f.dtr = append(f.dtr, on)
	return nil
}

func (f *fakeLines) Close() error {
	f.closed = true
	return nil
}

var (
	_ Keyer = Nop{}
	_ Keyer = (*Serial)(nil)
)

func TestOpen_NoPort(t *testing.T) {
	k, err := Open(&config.PTT{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := k.(Nop); !ok {
		t.Fatalf("keyer = %T, want Nop", k)
	}
}

func TestSerial_KeyUnkey(t *testing.T) {
	f := &fakeLines{}
	s := newSerial(f, &config.PTT{Port: "test", RTS: true, DTR: true, Lead: time.Millisecond})

	if err := s.Key(context.Background()); err != nil {
		t.Fatalf("Key: %v", err)
	}
	if err := s.Unkey(); err != nil {
		t.Fatalf("Unkey: %v", err)
	}
	// A second Unkey does nothing.
	if err := s.Unkey(); err != nil {
		t.Fatal(err)
	}
	want := []bool{true, false}
	if len(f.rts) != 2 || f.rts[0] != want[0] || f.rts[1] != want[1] {
		t.Fatalf("RTS = %v, want %v", f.rts, want)
	}
	if len(f.dtr) != 2 {
		t.Fatalf("DTR = %v", f.dtr)
	}
}

func TestSerial_OnlySelectedLines(t *testing.T) {
	f := &fakeLines{}
	s := newSerial(f, &config.PTT{Port: "test", DTR: true})
	if err := s.Key(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(f.rts) != 0 || len(f.dtr) != 1 || !f.dtr[0] {
		t.Fatalf("RTS = %v, DTR = %v", f.rts, f.dtr)
	}
}

func TestSerial_KeyCancelledDuringLead(t *testing.T) {
	f := &fakeLines{}
	s := newSerial(f, &config.PTT{Port: "test", RTS: true, Lead: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Key(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if n := len(f.rts); n != 2 || f.rts[n-1] {
		t.Fatalf("RTS = %v, want released after cancel", f.rts)
	}
}

func TestSerial_Errors(t *testing.T) {
	broken := errors.New("device gone")
	f := &fakeLines{failRTS: broken}
	s := newSerial(f, &config.PTT{Port: "test", RTS: true})
	if err := s.Key(context.Background()); !errors.Is(err, broken) {
		t.Fatalf("err = %v, want %v", err, broken)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close after failed key: %v", err)
	}
	if !f.closed {
		t.Fatal("port not closed")
	}
}
