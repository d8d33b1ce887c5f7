package mwabox

// VisibilityPol labels one of the polarisation products the correlator
// emits for every baseline.
type VisibilityPol struct {
	// Polarisation product, one of "XX", "XY", "YX", "YY".
	Polarisation string
}

// newVisibilityPols returns the four products in the order they are
// interleaved within a visibility buffer.
func newVisibilityPols() []VisibilityPol {
	return []VisibilityPol{
		{Polarisation: "XX"},
		{Polarisation: "XY"},
		{Polarisation: "YX"},
		{Polarisation: "YY"},
	}
}
