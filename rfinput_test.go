package mwabox

import "testing"

func TestVCSOrder(t *testing.T) {
	tests := []struct {
		input uint32
		want  uint32
	}{
		{0, 0},
		{1, 4},
		{2, 8},
		{8, 32},
		{9, 36},
		{15, 60},
		{16, 1},
		{32, 2},
		{127, 127},
		{128, 128},
		{129, 132},
		{224, 194},
		{254, 251},
		{255, 255},
	}
	for _, tt := range tests {
		if got := vcsOrder(tt.input); got != tt.want {
			t.Errorf("Expected vcs order %d for input %d, got %d", tt.want, tt.input, got)
		}
	}
}

func TestVCSOrderIsPermutation(t *testing.T) {
	seen := make(map[uint32]uint32, 256)
	for i := uint32(0); i < 256; i++ {
		o := vcsOrder(i)
		if o > 255 {
			t.Fatalf("Expected vcs order below 256 for input %d, got %d", i, o)
		}
		if prev, dup := seen[o]; dup {
			t.Fatalf("Expected a unique vcs order, but inputs %d and %d both map to %d", prev, i, o)
		}
		seen[o] = i
	}
}

func TestSubfileOrder(t *testing.T) {
	tests := []struct {
		ant  uint32
		pol  Pol
		want uint32
	}{
		{0, PolX, 0},
		{0, PolY, 1},
		{1, PolX, 2},
		{101, PolX, 202},
		{101, PolY, 203},
		{127, PolY, 255},
	}
	for _, tt := range tests {
		if got := subfileOrder(tt.ant, tt.pol); got != tt.want {
			t.Errorf("Expected subfile order %d for antenna %d pol %v, got %d", tt.want, tt.ant, tt.pol, got)
		}
	}
}

func TestPolString(t *testing.T) {
	if PolX.String() != "X" {
		t.Errorf("Expected X, got %q", PolX.String())
	}
	if PolY.String() != "Y" {
		t.Errorf("Expected Y, got %q", PolY.String())
	}
}
