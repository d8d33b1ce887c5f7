package mwabox

import "math"

// Baseline names the pair of antennas whose correlation occupies one
// slot of a visibility buffer. Baselines are enumerated in standard
// upper-triangle order: (0,0), (0,1) .. (0,N-1), (1,1), (1,2) .. (N-1,N-1).
type Baseline struct {
	// Ant1 is the index of the first antenna in the context's antenna list.
	Ant1 int
	// Ant2 is the index of the second antenna. Always >= Ant1.
	Ant2 int
}

// BaselineCount returns the number of baselines for an antenna count,
// including the auto-correlations.
func BaselineCount(numAnts int) int {
	return numAnts * (numAnts + 1) / 2
}

// newBaselines enumerates every baseline in upper-triangle order.
func newBaselines(numAnts int) []Baseline {
	baselines := make([]Baseline, 0, BaselineCount(numAnts))
	for ant1 := 0; ant1 < numAnts; ant1++ {
		for ant2 := ant1; ant2 < numAnts; ant2++ {
			baselines = append(baselines, Baseline{Ant1: ant1, Ant2: ant2})
		}
	}
	return baselines
}

// AntennasFromBaseline converts a baseline index back to its antenna
// pair. ok is false when the index is outside the triangle.
func AntennasFromBaseline(baseline, numAnts int) (ant1, ant2 int, ok bool) {
	n := float64(numAnts)
	ant1 = int(-0.5*math.Sqrt(4*n*n+4*n-8*float64(baseline)+1) + n + 0.5)
	ant2 = baseline - (ant1*numAnts - (ant1*ant1+ant1)/2)
	if ant1 < 0 || ant1 > numAnts-1 || ant2 < 0 || ant2 > numAnts-1 {
		return 0, 0, false
	}
	return ant1, ant2, true
}

// BaselineFromAntennas converts an antenna pair to its baseline index.
// ok is false when either antenna is outside the array or the pair is
// not in upper-triangle order.
func BaselineFromAntennas(antenna1, antenna2, numAnts int) (baseline int, ok bool) {
	index := 0
	for ant1 := 0; ant1 < numAnts; ant1++ {
		for ant2 := ant1; ant2 < numAnts; ant2++ {
			if ant1 == antenna1 && ant2 == antenna2 {
				return index, true
			}
			index++
		}
	}
	return 0, false
}
