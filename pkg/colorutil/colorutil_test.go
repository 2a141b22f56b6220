package colorutil

import (
	"math"
	"testing"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		r, g, b uint8
		wantErr bool
	}{
		{in: "#78c8ff", r: 0x78, g: 0xc8, b: 0xff},
		{in: "00ff10", r: 0, g: 0xff, b: 0x10},
		{in: "#abc", r: 0xaa, g: 0xbb, b: 0xcc},
		{in: "#12345", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
	}
	for _, tt := range tests {
		c, err := ParseHex(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseHex(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseHex(%q) error: %v", tt.in, err)
		}
		if c.R != tt.r || c.G != tt.g || c.B != tt.b || c.A != 255 {
			t.Errorf("ParseHex(%q) = %v", tt.in, c)
		}
		if got := Hex(c); tt.in[0] == '#' && len(tt.in) == 7 && got != tt.in {
			t.Errorf("Hex round trip = %q, want %q", got, tt.in)
		}
	}
}

func TestRGBToHLS(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b float64
		h, l, s float64
	}{
		{"white", 255, 255, 255, 0, 255, 0},
		{"black", 0, 0, 0, 0, 0, 0},
		{"red", 255, 0, 0, 0, 127.5, 255},
		{"green", 0, 255, 0, 60, 127.5, 255},
		{"blue", 0, 0, 255, 120, 127.5, 255},
	}
	for _, tt := range tests {
		h, l, s := RGBToHLS(tt.r, tt.g, tt.b)
		if math.Abs(h-tt.h) > 0.5 || math.Abs(l-tt.l) > 0.5 || math.Abs(s-tt.s) > 0.5 {
			t.Errorf("%s: RGBToHLS = (%.1f, %.1f, %.1f), want (%.1f, %.1f, %.1f)",
				tt.name, h, l, s, tt.h, tt.l, tt.s)
		}
	}
}
