package gpubox

// Coverage describes a contiguous run of scan times over which every
// channel present in the dataset delivered data.
type Coverage struct {
	// StartMS is the first covered scan time.
	StartMS uint64
	// EndMS is the end of the window: the last covered scan time plus
	// one step (exclusive).
	EndMS uint64
	// DurationMS is EndMS - StartMS.
	DurationMS uint64
	// ChanIDs are the channel ids present throughout the window,
	// ascending.
	ChanIDs []int
}

// Coverage resolves the first contiguous fully-covered window of the
// map at the given scan cadence.
//
// A scan time is fully covered when its channel count equals the
// largest channel count seen anywhere in the map. The window starts at
// the earliest fully-covered time and extends while each successive
// fully-covered time is exactly stepMS after the previous; it is the
// FIRST maximal run, not the longest. Callers wanting a later run call
// CoverageAfter with a cutoff past the first one.
//
// A nil result means no fully-covered window exists; that is a normal
// outcome, not an error.
func (m *TimeMap) Coverage(stepMS uint64) *Coverage {
	return m.resolve(0, stepMS)
}

// CoverageAfter is Coverage restricted to scan times at or after
// cutoffMS (inclusive).
func (m *TimeMap) CoverageAfter(cutoffMS, stepMS uint64) *Coverage {
	return m.resolve(cutoffMS, stepMS)
}

func (m *TimeMap) resolve(cutoffMS, stepMS uint64) *Coverage {
	times := make([]uint64, 0, len(m.times))
	for _, t := range m.times {
		if t >= cutoffMS {
			times = append(times, t)
		}
	}
	if len(times) == 0 {
		return nil
	}

	max := 0
	for _, t := range times {
		if n := len(m.entries[t]); n > max {
			max = n
		}
	}
	// Every surviving time has exactly max channels, so contiguity is
	// the only condition the walk below needs to test.
	full := times[:0]
	for _, t := range times {
		if len(m.entries[t]) == max {
			full = append(full, t)
		}
	}
	if len(full) == 0 {
		return nil
	}

	start := full[0]
	end := start + stepMS
	prev := start
	for _, t := range full[1:] {
		if t-prev != stepMS {
			break
		}
		end = t + stepMS
		prev = t
	}

	return &Coverage{
		StartMS:    start,
		EndMS:      end,
		DurationMS: end - start,
		ChanIDs:    m.ChanIDsAt(start),
	}
}
