// Package gpubox classifies MWA correlator data files, scans them into
// a time map of which scan exists in which file and HDU, and resolves
// the time windows common to every coarse channel.
//
// The correlator writes one FITS file per coarse channel per batch.
// Three generations of filename grammar exist; a single observation
// never mixes them. All times in this package are unix milliseconds.
package gpubox

import "fmt"

// CorrelatorVersion identifies the correlator generation that wrote a
// set of gpubox files.
type CorrelatorVersion int

const (
	// VersionMWAXv2 is the MWAX correlator, v2.0.
	VersionMWAXv2 CorrelatorVersion = iota
	// VersionLegacy is the original correlator with batched filenames, v1.0.
	VersionLegacy
	// VersionOldLegacy is the original correlator before batch suffixes, v1.0.
	VersionOldLegacy
)

func (v CorrelatorVersion) String() string {
	switch v {
	case VersionMWAXv2:
		return "v2 MWAX"
	case VersionLegacy:
		return "v1 Legacy"
	case VersionOldLegacy:
		return "v1 Old Legacy"
	}
	return fmt.Sprintf("CorrelatorVersion(%d)", int(v))
}
