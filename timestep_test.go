package mwabox

import "testing"

func timestepTestMetafits() *Metafits {
	return &Metafits{
		SchedStartUnixMs:  1417468096000,
		SchedEndUnixMs:    1417468100000,
		SchedDurationMs:   4000,
		SchedStartGPSMs:   1101503312000,
		SchedEndGPSMs:     1101503316000,
		IntegrationTimeMs: 500,
	}
}

func TestBuildTimestepsMatchingSchedule(t *testing.T) {
	m := timestepTestMetafits()
	var data []uint64
	for ts := m.SchedStartUnixMs; ts < m.SchedEndUnixMs; ts += m.IntegrationTimeMs {
		data = append(data, ts)
	}

	steps := buildTimesteps(data, m)
	if len(steps) != 8 {
		t.Fatalf("Expected 8 timesteps, got %d", len(steps))
	}
	if steps[0].UnixTimeMs != 1417468096000 {
		t.Errorf("Expected first timestep 1417468096000, got %d", steps[0].UnixTimeMs)
	}
	if steps[0].GPSTimeMs != 1101503312000 {
		t.Errorf("Expected first GPS time 1101503312000, got %d", steps[0].GPSTimeMs)
	}
	if last := steps[len(steps)-1]; last.UnixTimeMs != 1417468099500 {
		t.Errorf("Expected last timestep 1417468099500, got %d", last.UnixTimeMs)
	}
	for i := 1; i < len(steps); i++ {
		if steps[i].UnixTimeMs-steps[i-1].UnixTimeMs != m.IntegrationTimeMs {
			t.Fatalf("Expected a %d ms cadence between steps %d and %d", m.IntegrationTimeMs, i-1, i)
		}
	}
}

func TestBuildTimestepsNoData(t *testing.T) {
	m := timestepTestMetafits()
	steps := buildTimesteps(nil, m)
	// The schedule alone still defines the grid.
	if len(steps) != 8 {
		t.Fatalf("Expected 8 timesteps from the schedule, got %d", len(steps))
	}
}

func TestBuildTimestepsDataPastScheduleEnd(t *testing.T) {
	m := timestepTestMetafits()
	data := []uint64{m.SchedStartUnixMs, m.SchedStartUnixMs + 5000}

	steps := buildTimesteps(data, m)
	if len(steps) != 11 {
		t.Fatalf("Expected 11 timesteps, got %d", len(steps))
	}
	if last := steps[len(steps)-1]; last.UnixTimeMs != m.SchedStartUnixMs+5000 {
		t.Errorf("Expected the grid to extend to the last scan, got %d", last.UnixTimeMs)
	}
}

func TestBuildTimestepsDataBeforeSchedule(t *testing.T) {
	m := timestepTestMetafits()
	data := []uint64{m.SchedStartUnixMs - 1000, m.SchedStartUnixMs}

	steps := buildTimesteps(data, m)
	if len(steps) != 10 {
		t.Fatalf("Expected 10 timesteps, got %d", len(steps))
	}
	if steps[0].UnixTimeMs != m.SchedStartUnixMs-1000 {
		t.Errorf("Expected the grid to start at the first scan, got %d", steps[0].UnixTimeMs)
	}
	if steps[0].GPSTimeMs != m.SchedStartGPSMs-1000 {
		t.Errorf("Expected GPS times to track the grid, got %d", steps[0].GPSTimeMs)
	}
}

func TestBuildTimestepsShortSchedule(t *testing.T) {
	m := timestepTestMetafits()
	m.SchedDurationMs = 0
	m.SchedEndUnixMs = m.SchedStartUnixMs

	steps := buildTimesteps(nil, m)
	if len(steps) != 1 {
		t.Fatalf("Expected a single timestep for an empty schedule, got %d", len(steps))
	}
	if steps[0].UnixTimeMs != m.SchedStartUnixMs {
		t.Errorf("Expected the single timestep at the scheduled start, got %d", steps[0].UnixTimeMs)
	}
}
