package sstv

import (
	"math"
	"testing"
)

func TestUnpack565_Extremes(t *testing.T) {
	tests := []struct {
		name    string
		packed  uint16
		r, g, b uint8
	}{
		{"black", 0x0000, 0, 0, 0},
		{"white", 0xffff, 255, 255, 255},
		{"red", 0xf800, 255, 0, 0},
		{"green", 0x07e0, 0, 255, 0},
		{"blue", 0x001f, 0, 0, 255},
		{"background", 0x29ee, 41, 60, 115},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := Unpack565(tt.packed)
			if r != tt.r || g != tt.g || b != tt.b {
				t.Fatalf("Unpack565(%#04x) = (%d,%d,%d), want (%d,%d,%d)", tt.packed, r, g, b, tt.r, tt.g, tt.b)
			}
		})
	}
}

func TestPack565_RoundTripsThroughUnpack(t *testing.T) {
	for p := 0; p <= 0xffff; p++ {
		r, g, b := Unpack565(uint16(p))
		if got := Pack565(r, g, b); got != uint16(p) {
			t.Fatalf("Pack565(Unpack565(%#04x)) = %#04x", p, got)
		}
	}
}

func TestToChannels_GreyHasNoColorDifference(t *testing.T) {
	for c := 0; c <= 255; c++ {
		ch := ToChannels(uint8(c), uint8(c), uint8(c))
		if ch.Y != float32(c) {
			t.Fatalf("grey %d: Y = %v, want %d", c, ch.Y, c)
		}
		if ch.RY != 0 || ch.BY != 0 {
			t.Fatalf("grey %d: R-Y = %v, B-Y = %v, want 0", c, ch.RY, ch.BY)
		}
	}
}

func TestToChannels_LumaBoundedByBrightestComponent(t *testing.T) {
	for r := 0; r <= 255; r += 15 {
		for g := 0; g <= 255; g += 15 {
			for b := 0; b <= 255; b += 15 {
				ch := ToChannels(uint8(r), uint8(g), uint8(b))
				hi := math.Max(float64(r), math.Max(float64(g), float64(b)))
				if float64(ch.Y) > hi+1e-3 {
					t.Fatalf("(%d,%d,%d): Y = %v exceeds max component %v", r, g, b, ch.Y, hi)
				}
			}
		}
	}
}

func TestToChannels_Coefficients(t *testing.T) {
	ch := ToChannels(255, 0, 0)
	if math.Abs(float64(ch.Y)-76.245) > 1e-3 {
		t.Errorf("Y = %v, want 76.245", ch.Y)
	}
	if want := 0.713 * (255 - 76.245); math.Abs(float64(ch.RY)-want) > 1e-3 {
		t.Errorf("R-Y = %v, want %v", ch.RY, want)
	}
	if want := 0.564 * (0 - 76.245); math.Abs(float64(ch.BY)-want) > 1e-3 {
		t.Errorf("B-Y = %v, want %v", ch.BY, want)
	}
}
