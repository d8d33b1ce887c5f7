package mwabox

import (
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"mwabox/internal/fitstest"
)

// writeTestMetafits writes a small but fully populated metafits file
// and returns its path. The numbers follow a real 2014 observation.
func writeTestMetafits(t *testing.T, opts fitstest.MetafitsOpts) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.metafits")
	if err := fitstest.WriteMetafits(path, opts); err != nil {
		t.Fatalf("Failed to write metafits fixture: %v", err)
	}
	return path
}

func testMetafitsOpts() fitstest.MetafitsOpts {
	return fitstest.MetafitsOpts{
		ObsID:        1101503312,
		GoodTimeSec:  1417468098.0,
		QuackTimeSec: 2.0,
		ExposureSec:  112,
		IntTimeSec:   0.5,
		FineChanKHz:  10,
		BandwidthMHz: 3.84,
		FreqCentMHz:  154.24,
		Channels:     []int{131, 132, 133},
		Receivers:    []int{1, 2},
		Delays:       []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		Mode:         "HW_LFILES",
		Project:      "G0009",
		Creator:      "Randall",
		Filename:     "HighRes_145",
		AttenDB:      1.0,
		Tiles:        fitstest.DefaultTiles(4),
	}
}

func TestNewMetafits(t *testing.T) {
	path := writeTestMetafits(t, testMetafitsOpts())

	m, err := NewMetafits(path)
	if err != nil {
		t.Fatalf("Failed to read metafits: %v", err)
	}

	if m.ObsID != 1101503312 {
		t.Errorf("Expected obsid 1101503312, got %d", m.ObsID)
	}
	if m.SchedStartGPSMs != 1101503312000 {
		t.Errorf("Expected scheduled GPS start 1101503312000, got %d", m.SchedStartGPSMs)
	}
	if m.SchedEndGPSMs != 1101503424000 {
		t.Errorf("Expected scheduled GPS end 1101503424000, got %d", m.SchedEndGPSMs)
	}
	if m.SchedStartUnixMs != 1417468096000 {
		t.Errorf("Expected scheduled unix start 1417468096000, got %d", m.SchedStartUnixMs)
	}
	if m.SchedEndUnixMs != 1417468208000 {
		t.Errorf("Expected scheduled unix end 1417468208000, got %d", m.SchedEndUnixMs)
	}
	if m.SchedDurationMs != 112000 {
		t.Errorf("Expected scheduled duration 112000 ms, got %d", m.SchedDurationMs)
	}
	if m.QuackDurationMs != 2000 {
		t.Errorf("Expected quack duration 2000 ms, got %d", m.QuackDurationMs)
	}
	if m.GoodTimeUnixMs != 1417468098000 {
		t.Errorf("Expected good time 1417468098000, got %d", m.GoodTimeUnixMs)
	}
	if m.IntegrationTimeMs != 500 {
		t.Errorf("Expected integration time 500 ms, got %d", m.IntegrationTimeMs)
	}

	if m.FineChanWidthHz != 10000 {
		t.Errorf("Expected fine channel width 10000 Hz, got %d", m.FineChanWidthHz)
	}
	if m.CoarseChanWidthHz != 1280000 {
		t.Errorf("Expected coarse channel width 1280000 Hz, got %d", m.CoarseChanWidthHz)
	}
	if m.ObservationBandwidthHz != 3840000 {
		t.Errorf("Expected observation bandwidth 3840000 Hz, got %d", m.ObservationBandwidthHz)
	}
	if m.CentreFreqHz != 154240000 {
		t.Errorf("Expected centre frequency 154240000 Hz, got %d", m.CentreFreqHz)
	}
	if m.NumFineChansPerCoarse != 128 {
		t.Errorf("Expected 128 fine channels per coarse, got %d", m.NumFineChansPerCoarse)
	}
	if m.NumCoarseChans != 3 {
		t.Errorf("Expected 3 coarse channels, got %d", m.NumCoarseChans)
	}
	if !reflect.DeepEqual(m.ReceiverChannels, []int{131, 132, 133}) {
		t.Errorf("Expected receiver channels [131 132 133], got %v", m.ReceiverChannels)
	}
	if !reflect.DeepEqual(m.Receivers, []int{1, 2}) {
		t.Errorf("Expected receivers [1 2], got %v", m.Receivers)
	}
	if len(m.Delays) != 16 {
		t.Errorf("Expected 16 beamformer delays, got %d", len(m.Delays))
	}

	if m.Mode != "HW_LFILES" {
		t.Errorf("Expected mode HW_LFILES, got %q", m.Mode)
	}
	if m.Project != "G0009" {
		t.Errorf("Expected project G0009, got %q", m.Project)
	}
	if m.Creator != "Randall" {
		t.Errorf("Expected creator Randall, got %q", m.Creator)
	}
	if m.ObservationName != "HighRes_145" {
		t.Errorf("Expected observation name HighRes_145, got %q", m.ObservationName)
	}
	if m.GlobalAttenuationDB != 1.0 {
		t.Errorf("Expected global attenuation 1 dB, got %v", m.GlobalAttenuationDB)
	}

	if m.NumAnts != 4 {
		t.Errorf("Expected 4 antennas, got %d", m.NumAnts)
	}
	if m.NumRFInputs != 8 {
		t.Errorf("Expected 8 rf inputs, got %d", m.NumRFInputs)
	}
	if m.NumBaselines != 10 {
		t.Errorf("Expected 10 baselines, got %d", m.NumBaselines)
	}
	if m.NumVisibilityPols != 4 {
		t.Errorf("Expected 4 visibility pols, got %d", m.NumVisibilityPols)
	}
	if m.NumAntPols != 2 {
		t.Errorf("Expected 2 antenna pols, got %d", m.NumAntPols)
	}
}

func TestNewMetafitsRFInputs(t *testing.T) {
	path := writeTestMetafits(t, testMetafitsOpts())

	m, err := NewMetafits(path)
	if err != nil {
		t.Fatalf("Failed to read metafits: %v", err)
	}

	if len(m.RFInputs) != 8 {
		t.Fatalf("Expected 8 rf inputs, got %d", len(m.RFInputs))
	}
	for i, rf := range m.RFInputs {
		if int(rf.SubfileOrder) != i {
			t.Errorf("Expected rf input %d to have subfile order %d, got %d", i, i, rf.SubfileOrder)
		}
	}

	first := m.RFInputs[0]
	if first.Input != 0 || first.Ant != 0 || first.Pol != PolX {
		t.Errorf("Expected input 0 / antenna 0 / pol X first, got input %d / antenna %d / pol %v",
			first.Input, first.Ant, first.Pol)
	}
	if first.TileID != 11 || first.TileName != "Tile011" {
		t.Errorf("Expected tile 11 %q, got tile %d %q", "Tile011", first.TileID, first.TileName)
	}
	if first.ElectricalLengthM != 123.45 {
		t.Errorf("Expected electrical length 123.45 m, got %v", first.ElectricalLengthM)
	}
	if first.VCSOrder != 0 {
		t.Errorf("Expected vcs order 0, got %d", first.VCSOrder)
	}
	if len(first.Gains) != 24 || first.Gains[0] != 64 {
		t.Errorf("Expected 24 gains of 64, got %d gains starting %v", len(first.Gains), first.Gains)
	}
	if len(first.Delays) != 16 {
		t.Errorf("Expected 16 delays, got %d", len(first.Delays))
	}
	if first.RxNumber != 1 || first.RxSlot != 1 {
		t.Errorf("Expected receiver 1 slot 1, got receiver %d slot %d", first.RxNumber, first.RxSlot)
	}
	if first.Flagged {
		t.Error("Expected unflagged input")
	}

	// Input 2 is antenna 1 pol X; its vcs order comes from the bit shuffle.
	if got := m.RFInputs[2].VCSOrder; got != 8 {
		t.Errorf("Expected vcs order 8 for input 2, got %d", got)
	}

	if len(m.Antennas) != 4 {
		t.Fatalf("Expected 4 antennas, got %d", len(m.Antennas))
	}
	if m.Antennas[0].TileName != "Tile011" {
		t.Errorf("Expected first antenna Tile011, got %q", m.Antennas[0].TileName)
	}
	if m.Antennas[3].TileID != 14 {
		t.Errorf("Expected last antenna tile id 14, got %d", m.Antennas[3].TileID)
	}
	if m.Antennas[1].RFInputX.Pol != PolX || m.Antennas[1].RFInputY.Pol != PolY {
		t.Error("Expected antenna receptors paired X then Y")
	}

	orders := m.subfileOrdersByInput()
	for i, o := range orders {
		if o != i {
			t.Fatalf("Expected subfile order %d at input %d, got %d", i, i, o)
		}
	}
}

func TestNewMetafitsFlaggedInput(t *testing.T) {
	opts := testMetafitsOpts()
	opts.Tiles[3].Flag = 1 // antenna 1, pol Y
	path := writeTestMetafits(t, opts)

	m, err := NewMetafits(path)
	if err != nil {
		t.Fatalf("Failed to read metafits: %v", err)
	}
	if !m.RFInputs[3].Flagged {
		t.Error("Expected antenna 1 pol Y to be flagged")
	}
	if m.RFInputs[2].Flagged {
		t.Error("Expected antenna 1 pol X to be unflagged")
	}
	if !m.Antennas[1].RFInputY.Flagged {
		t.Error("Expected antenna pairing to carry the flag")
	}
}

func TestNewMetafitsBadPolarisation(t *testing.T) {
	opts := testMetafitsOpts()
	opts.Tiles[0].Pol = "Q"
	path := writeTestMetafits(t, opts)

	_, err := NewMetafits(path)
	if err == nil {
		t.Fatal("Expected an error for a bad polarisation")
	}
	if !strings.Contains(err.Error(), "unrecognised polarisation") {
		t.Errorf("Expected an unrecognised polarisation error, got: %v", err)
	}
}

func TestNewMetafitsMissingFile(t *testing.T) {
	if _, err := NewMetafits(filepath.Join(t.TempDir(), "nope.metafits")); err == nil {
		t.Fatal("Expected an error for a missing metafits")
	}
}

func TestMetafitsTimeConversion(t *testing.T) {
	path := writeTestMetafits(t, testMetafitsOpts())

	m, err := NewMetafits(path)
	if err != nil {
		t.Fatalf("Failed to read metafits: %v", err)
	}

	if got := m.UnixToGPS(m.SchedStartUnixMs); got != m.SchedStartGPSMs {
		t.Errorf("Expected GPS %d at the scheduled start, got %d", m.SchedStartGPSMs, got)
	}
	if got := m.GPSToUnix(m.SchedStartGPSMs); got != m.SchedStartUnixMs {
		t.Errorf("Expected unix %d at the scheduled start, got %d", m.SchedStartUnixMs, got)
	}
	// 1.5 integrations into the observation, both ways.
	unix := m.SchedStartUnixMs + 750
	if got := m.GPSToUnix(m.UnixToGPS(unix)); got != unix {
		t.Errorf("Expected round trip to return %d, got %d", unix, got)
	}
}

func TestMetafitsString(t *testing.T) {
	path := writeTestMetafits(t, testMetafitsOpts())

	m, err := NewMetafits(path)
	if err != nil {
		t.Fatalf("Failed to read metafits: %v", err)
	}
	s := m.String()
	for _, want := range []string{"1101503312", "HW_LFILES", "G0009", "1.280 MHz"} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected summary to mention %q:\n%s", want, s)
		}
	}
}

func TestParseIntList(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"131,132,133", []int{131, 132, 133}},
		{"'131,132,133'", []int{131, 132, 133}},
		{"'131, 132,&133'", []int{131, 132, 133}},
		{"0", []int{0}},
		{"", nil},
	}
	for _, tt := range tests {
		got, err := parseIntList(tt.in)
		if err != nil {
			t.Errorf("Failed to parse %q: %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Expected %v for %q, got %v", tt.want, tt.in, got)
		}
	}

	if _, err := parseIntList("131,x,133"); err == nil {
		t.Error("Expected an error for a non-numeric element")
	}
}

func TestElectricalLength(t *testing.T) {
	got, err := electricalLength("EL_123.45", coaxVFactor)
	if err != nil {
		t.Fatalf("Failed to parse electrical length: %v", err)
	}
	if got != 123.45 {
		t.Errorf("Expected 123.45, got %v", got)
	}

	got, err = electricalLength("16", coaxVFactor)
	if err != nil {
		t.Fatalf("Failed to parse physical length: %v", err)
	}
	if math.Abs(got-19.264) > 1e-9 {
		t.Errorf("Expected 19.264, got %v", got)
	}

	if _, err := electricalLength("EL_abc", coaxVFactor); err == nil {
		t.Error("Expected an error for a malformed length")
	}
}
