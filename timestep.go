package mwabox

// TimeStep is one correlator integration period of the observation.
type TimeStep struct {
	// UnixTimeMs is the start of the integration in unix milliseconds.
	UnixTimeMs uint64
	// GPSTimeMs is the start of the integration in GPS milliseconds.
	GPSTimeMs uint64
}

// buildTimesteps lays out the observation's timestep grid: one entry
// per integration at the correlator cadence, running from the earlier
// of the scheduled start and the first scan on disk through the later
// of the last scheduled integration and the last scan on disk. Scans
// outside the schedule extend the grid so that every scan has an
// index; grid points without data are kept so that indices stay in
// lockstep with wall time.
//
// dataTimes must be ascending unix milliseconds, as TimeMap.Times
// returns them.
func buildTimesteps(dataTimes []uint64, m *Metafits) []TimeStep {
	start := m.SchedStartUnixMs
	last := start
	if m.SchedDurationMs >= m.IntegrationTimeMs {
		last = m.SchedEndUnixMs - m.IntegrationTimeMs
	}
	if len(dataTimes) > 0 {
		if first := dataTimes[0]; first < start {
			start = first
		}
		if t := dataTimes[len(dataTimes)-1]; t > last {
			last = t
		}
	}

	steps := make([]TimeStep, 0, (last-start)/m.IntegrationTimeMs+1)
	for t := start; t <= last; t += m.IntegrationTimeMs {
		steps = append(steps, TimeStep{UnixTimeMs: t, GPSTimeMs: m.UnixToGPS(t)})
	}
	return steps
}
