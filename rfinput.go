package mwabox

import (
	"fmt"
	"strconv"
	"strings"
)

// Velocity factor of the RG-6 style coax used between tiles and
// receivers. Older metafits files store a raw cable length that must be
// multiplied by this to get the electrical length.
const coaxVFactor = 1.204

// Pol is one instrument polarisation of an antenna.
type Pol int

const (
	// PolX is the X (east-west) polarisation.
	PolX Pol = iota
	// PolY is the Y (north-south) polarisation.
	PolY
)

func (p Pol) String() string {
	if p == PolY {
		return "Y"
	}
	return "X"
}

// RFInput is one signal chain: a single polarisation of a single tile,
// as described by a row of the metafits TILEDATA table.
type RFInput struct {
	// Input is the ordinal position of this signal chain in the metafits.
	Input uint32
	// Ant is the antenna number. X and Y of one tile share it.
	Ant uint32
	// TileID is the numeric part of the tile name, e.g. Tile011 -> 11.
	TileID uint32
	// TileName is the human readable tile name. X and Y share it.
	TileName string
	// Pol is the polarisation of this signal chain.
	Pol Pol
	// ElectricalLengthM is the electrical cable length to the receiver in metres.
	ElectricalLengthM float64
	// NorthM is the tile position north of the array centre in metres.
	NorthM float64
	// EastM is the tile position east of the array centre in metres.
	EastM float64
	// HeightM is the tile height relative to the array centre in metres.
	HeightM float64
	// VCSOrder is the position of this input in the fine-PFB output
	// feeding the legacy correlator.
	VCSOrder uint32
	// SubfileOrder is the position of this input in the canonical
	// output ordering. MWAX already emits data in this order.
	SubfileOrder uint32
	// Flagged reports whether the metafits marks this input as bad.
	Flagged bool
	// Gains holds the 24 per-coarse-channel digital gains.
	Gains []int32
	// Delays holds the 16 dipole beamformer delays.
	Delays []int32
	// RxNumber is the receiver this input is cabled to.
	RxNumber uint32
	// RxSlot is the slot within that receiver.
	RxSlot uint32
}

// vcsOrder computes the position of a metafits input in the fine-PFB
// output ordering. Newer metafits files carry this as a column, but it
// is cheaper to derive than to demand a recent metafits.
func vcsOrder(input uint32) uint32 {
	return (input & 0xC0) | ((input & 0x30) >> 4) | ((input & 0x0F) << 2)
}

// subfileOrder computes the canonical output position of one signal
// chain: tile 0 holds positions 0 (X) and 1 (Y), tile 1 holds 2 and 3,
// and so on.
func subfileOrder(antenna uint32, pol Pol) uint32 {
	order := antenna * 2
	if pol == PolY {
		order++
	}
	return order
}

// electricalLength parses the metafits Length column. Values prefixed
// with "EL_" are electrical lengths already; bare values are physical
// cable lengths that must be scaled by the coax velocity factor.
func electricalLength(lengthField string, vFactor float64) (float64, error) {
	if rest, found := strings.CutPrefix(lengthField, "EL_"); found {
		length, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse electrical length %q: %w", lengthField, err)
		}
		return length, nil
	}
	length, err := strconv.ParseFloat(lengthField, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse cable length %q: %w", lengthField, err)
	}
	return length * vFactor, nil
}
