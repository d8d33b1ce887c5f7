package mwabox

// Antenna is one tile of the array, pairing its X and Y signal chains.
type Antenna struct {
	// Ant is the antenna number, 0..N-1 in canonical output order.
	Ant uint32
	// TileID is the numeric part of the tile name.
	TileID uint32
	// TileName is the human readable tile name.
	TileName string
	// RFInputX is the X polarisation signal chain of this tile.
	RFInputX RFInput
	// RFInputY is the Y polarisation signal chain of this tile.
	RFInputY RFInput
}

// newAntennas pairs adjacent signal chains into antennas. rfInputs must
// already be sorted by subfile order, so each tile's X input directly
// precedes its Y input.
func newAntennas(rfInputs []RFInput) []Antenna {
	antennas := make([]Antenna, 0, len(rfInputs)/2)
	for i := 0; i+1 < len(rfInputs); i += 2 {
		x, y := rfInputs[i], rfInputs[i+1]
		antennas = append(antennas, Antenna{
			Ant:      x.Ant,
			TileID:   x.TileID,
			TileName: x.TileName,
			RFInputX: x,
			RFInputY: y,
		})
	}
	return antennas
}
