package mwabox

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"mwabox/internal/fits"
)

// Metafits holds the observation metadata read from a metafits file:
// scheduling, correlator mode, frequency setup and the full signal
// chain table. It is immutable once built.
type Metafits struct {
	// ObsID is the observation id (also its scheduled GPS start in seconds).
	ObsID uint32
	// Filename is the path the metafits was read from.
	Filename string

	// SchedStartGPSMs is the scheduled observation start in GPS milliseconds.
	SchedStartGPSMs uint64
	// SchedEndGPSMs is the scheduled observation end in GPS milliseconds.
	SchedEndGPSMs uint64
	// SchedStartUnixMs is the scheduled observation start in unix milliseconds.
	SchedStartUnixMs uint64
	// SchedEndUnixMs is the scheduled observation end in unix milliseconds.
	SchedEndUnixMs uint64
	// SchedDurationMs is the scheduled observation length.
	SchedDurationMs uint64
	// QuackDurationMs is the settling period discarded from the start
	// of the observation.
	QuackDurationMs uint64
	// GoodTimeUnixMs is the first unix millisecond of good data, after
	// the quack period.
	GoodTimeUnixMs uint64
	// IntegrationTimeMs is the correlator dump cadence.
	IntegrationTimeMs uint64

	// Mode is the observation mode, e.g. "HW_LFILES" or "MWAX_CORRELATOR".
	Mode string
	// Project is the project id the observation was scheduled under.
	Project string
	// Creator is who scheduled the observation.
	Creator string
	// ObservationName is the observation's human readable name.
	ObservationName string
	// GlobalAttenuationDB is the array wide analogue attenuation.
	GlobalAttenuationDB float64

	// ReceiverChannels lists the receiver (sky) coarse channel numbers
	// of the observation, in metafits order.
	ReceiverChannels []int
	// Receivers lists the receiver numbers in use.
	Receivers []int
	// Delays lists the observation wide beamformer delays.
	Delays []int

	// NumCoarseChans is the number of coarse channels the observation
	// was scheduled with.
	NumCoarseChans int
	// CoarseChanWidthHz is the bandwidth of one coarse channel.
	CoarseChanWidthHz uint32
	// ObservationBandwidthHz is the total scheduled bandwidth.
	ObservationBandwidthHz uint32
	// CentreFreqHz is the observation centre frequency from the metafits.
	CentreFreqHz uint32
	// FineChanWidthHz is the correlator fine channel resolution.
	FineChanWidthHz uint32
	// NumFineChansPerCoarse is the number of fine channels in each
	// coarse channel.
	NumFineChansPerCoarse int

	// NumAnts is the number of antennas (tiles) in the observation.
	NumAnts int
	// Antennas lists every antenna in canonical output order.
	Antennas []Antenna
	// NumRFInputs is the number of signal chains, two per antenna.
	NumRFInputs int
	// RFInputs lists every signal chain, sorted by subfile order.
	RFInputs []RFInput
	// NumAntPols is the number of instrument polarisations per antenna.
	NumAntPols int
	// NumBaselines is the number of baselines including autos.
	NumBaselines int
	// Baselines enumerates every baseline in upper-triangle order.
	Baselines []Baseline
	// NumVisibilityPols is the number of correlator products per baseline.
	NumVisibilityPols int
	// VisibilityPols lists the correlator products in buffer order.
	VisibilityPols []VisibilityPol
}

// tileRow is one row of the metafits TILEDATA table.
type tileRow struct {
	Input    int32     `fits:"Input"`
	Antenna  int32     `fits:"Antenna"`
	Tile     int32     `fits:"Tile"`
	TileName string    `fits:"TileName"`
	Pol      string    `fits:"Pol"`
	Length   string    `fits:"Length"`
	North    float32   `fits:"North"`
	East     float32   `fits:"East"`
	Height   float32   `fits:"Height"`
	Flag     int32     `fits:"Flag"`
	Gains    [24]int32 `fits:"Gains"`
	Delays   [16]int32 `fits:"Delays"`
	Rx       int32     `fits:"Rx"`
	Slot     int32     `fits:"Slot"`
}

// NewMetafits reads a metafits file and derives the observation
// metadata the correlator context needs.
func NewMetafits(path string) (*Metafits, error) {
	f, err := fits.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := &Metafits{Filename: path, NumAntPols: 2}
	if err := m.readPrimary(f); err != nil {
		return nil, err
	}
	if err := m.readTileData(f); err != nil {
		return nil, err
	}

	m.NumAnts = m.NumRFInputs / 2
	m.Antennas = newAntennas(m.RFInputs)
	m.Baselines = newBaselines(m.NumAnts)
	m.NumBaselines = len(m.Baselines)
	m.VisibilityPols = newVisibilityPols()
	m.NumVisibilityPols = len(m.VisibilityPols)

	return m, nil
}

// readPrimary pulls the scalar observation keys from the primary HDU.
func (m *Metafits) readPrimary(f *fits.File) error {
	var err error
	intKey := func(key string) int64 {
		if err != nil {
			return 0
		}
		var v int64
		v, err = f.IntKey(0, key)
		return v
	}
	floatKey := func(key string) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = f.FloatKey(0, key)
		return v
	}
	stringKey := func(key string) string {
		if err != nil {
			return ""
		}
		var v string
		v, err = f.StringKey(0, key)
		return v
	}
	intListKey := func(key string) []int {
		s := stringKey(key)
		if err != nil {
			return nil
		}
		var v []int
		if v, err = parseIntList(s); err != nil {
			err = fmt.Errorf("failed to parse metafits %s key: %w", key, err)
		}
		return v
	}

	m.ObsID = uint32(intKey("GPSTIME"))
	m.QuackDurationMs = uint64(math.Round(floatKey("QUACKTIM") * 1000))
	m.GoodTimeUnixMs = uint64(math.Round(floatKey("GOODTIME") * 1000))
	m.SchedDurationMs = uint64(intKey("EXPOSURE")) * 1000
	m.IntegrationTimeMs = uint64(floatKey("INTTIME") * 1000)
	m.FineChanWidthHz = uint32(math.Round(floatKey("FINECHAN") * 1000))
	m.CentreFreqHz = uint32(math.Round(floatKey("FREQCENT") * 1e6))
	observationBandwidthHz := uint32(math.Round(floatKey("BANDWDTH") * 1e6))
	m.NumRFInputs = int(intKey("NINPUTS"))
	m.ReceiverChannels = intListKey("CHANNELS")
	m.Receivers = intListKey("RECVRS")
	m.Delays = intListKey("DELAYS")
	m.Mode = stringKey("MODE")
	m.Project = stringKey("PROJECT")
	m.Creator = stringKey("CREATOR")
	m.ObservationName = stringKey("FILENAME")
	m.GlobalAttenuationDB = floatKey("ATTEN_DB")
	if err != nil {
		return err
	}

	if len(m.ReceiverChannels) == 0 {
		return fmt.Errorf("metafits %s lists no coarse channels", m.Filename)
	}
	m.NumCoarseChans = len(m.ReceiverChannels)
	m.CoarseChanWidthHz = observationBandwidthHz / uint32(m.NumCoarseChans)
	m.ObservationBandwidthHz = uint32(m.NumCoarseChans) * m.CoarseChanWidthHz
	if m.FineChanWidthHz == 0 {
		return fmt.Errorf("metafits %s has a zero fine channel width", m.Filename)
	}
	if m.IntegrationTimeMs == 0 {
		return fmt.Errorf("metafits %s has a zero integration time", m.Filename)
	}
	m.NumFineChansPerCoarse = int(m.CoarseChanWidthHz / m.FineChanWidthHz)

	// The scheduled UNIX start is not stored directly; it is the first
	// good time minus the quack period. The GPS pair comes from the
	// obsid, which by convention is the scheduled GPS start in seconds.
	m.SchedStartGPSMs = uint64(m.ObsID) * 1000
	m.SchedEndGPSMs = m.SchedStartGPSMs + m.SchedDurationMs
	m.SchedStartUnixMs = m.GoodTimeUnixMs - m.QuackDurationMs
	m.SchedEndUnixMs = m.SchedStartUnixMs + m.SchedDurationMs

	return nil
}

// readTileData scans the TILEDATA table into RFInputs, sorted by
// subfile order.
func (m *Metafits) readTileData(f *fits.File) error {
	table, err := f.Table(1)
	if err != nil {
		return err
	}
	if n := int(table.NumRows()); n != m.NumRFInputs {
		return fmt.Errorf("metafits %s declares %d rf inputs but TILEDATA has %d rows", m.Filename, m.NumRFInputs, n)
	}

	rows, err := table.Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	m.RFInputs = make([]RFInput, 0, m.NumRFInputs)
	for rows.Next() {
		var row tileRow
		if err := rows.Scan(&row); err != nil {
			return fmt.Errorf("failed to read TILEDATA row %d of %s: %w", len(m.RFInputs), m.Filename, err)
		}

		var pol Pol
		switch row.Pol {
		case "X":
			pol = PolX
		case "Y":
			pol = PolY
		default:
			return fmt.Errorf("unrecognised polarisation %q in TILEDATA row %d of %s", row.Pol, len(m.RFInputs), m.Filename)
		}

		length, err := electricalLength(strings.TrimSpace(row.Length), coaxVFactor)
		if err != nil {
			return fmt.Errorf("TILEDATA row %d of %s: %w", len(m.RFInputs), m.Filename, err)
		}

		m.RFInputs = append(m.RFInputs, RFInput{
			Input:             uint32(row.Input),
			Ant:               uint32(row.Antenna),
			TileID:            uint32(row.Tile),
			TileName:          strings.TrimSpace(row.TileName),
			Pol:               pol,
			ElectricalLengthM: length,
			NorthM:            float64(row.North),
			EastM:             float64(row.East),
			HeightM:           float64(row.Height),
			VCSOrder:          vcsOrder(uint32(row.Input)),
			SubfileOrder:      subfileOrder(uint32(row.Antenna), pol),
			Flagged:           row.Flag == 1,
			Gains:             append([]int32(nil), row.Gains[:]...),
			Delays:            append([]int32(nil), row.Delays[:]...),
			RxNumber:          uint32(row.Rx),
			RxSlot:            uint32(row.Slot),
		})
	}

	sort.Slice(m.RFInputs, func(i, j int) bool {
		return m.RFInputs[i].SubfileOrder < m.RFInputs[j].SubfileOrder
	})
	return nil
}

// UnixToGPS converts a unix millisecond time in this observation to GPS
// milliseconds, using the scheduled-start epoch pair as the reference.
// Observations never span a leap second, so a fixed offset is exact.
func (m *Metafits) UnixToGPS(unixMs uint64) uint64 {
	return unixMs - (m.SchedStartUnixMs - m.SchedStartGPSMs)
}

// GPSToUnix converts a GPS millisecond time in this observation to unix
// milliseconds.
func (m *Metafits) GPSToUnix(gpsMs uint64) uint64 {
	return gpsMs + (m.SchedStartUnixMs - m.SchedStartGPSMs)
}

// subfileOrdersByInput returns each signal chain's subfile order,
// listed in metafits input order. This is the sequence the legacy
// conversion table is generated from.
func (m *Metafits) subfileOrdersByInput() []int {
	byInput := make([]struct{ input, order int }, len(m.RFInputs))
	for i, rf := range m.RFInputs {
		byInput[i] = struct{ input, order int }{int(rf.Input), int(rf.SubfileOrder)}
	}
	sort.Slice(byInput, func(i, j int) bool { return byInput[i].input < byInput[j].input })

	orders := make([]int, len(byInput))
	for i, p := range byInput {
		orders[i] = p.order
	}
	return orders
}

// parseIntList parses a metafits comma separated list value, stripping
// the quote and continuation characters some metafits versions embed.
func parseIntList(s string) ([]int, error) {
	clean := strings.NewReplacer("'", "", "&", "", " ", "").Replace(s)
	if clean == "" {
		return nil, nil
	}
	parts := strings.Split(clean, ",")
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad list element %q: %w", p, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// String renders a human readable summary of the metafits block.
func (m *Metafits) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Metafits (\n")
	fmt.Fprintf(&b, "    obsid:                    %d,\n", m.ObsID)
	fmt.Fprintf(&b, "    mode:                     %s,\n", m.Mode)
	fmt.Fprintf(&b, "    creator:                  %s,\n", m.Creator)
	fmt.Fprintf(&b, "    project:                  %s,\n", m.Project)
	fmt.Fprintf(&b, "    observation name:         %s,\n", m.ObservationName)
	fmt.Fprintf(&b, "    receivers:                %v,\n", m.Receivers)
	fmt.Fprintf(&b, "    delays:                   %v,\n", m.Delays)
	fmt.Fprintf(&b, "    global attenuation:       %v dB,\n", m.GlobalAttenuationDB)
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "    scheduled start (UNIX):   %.3f,\n", float64(m.SchedStartUnixMs)/1e3)
	fmt.Fprintf(&b, "    scheduled end (UNIX):     %.3f,\n", float64(m.SchedEndUnixMs)/1e3)
	fmt.Fprintf(&b, "    scheduled start (GPS):    %.3f,\n", float64(m.SchedStartGPSMs)/1e3)
	fmt.Fprintf(&b, "    scheduled end (GPS):      %.3f,\n", float64(m.SchedEndGPSMs)/1e3)
	fmt.Fprintf(&b, "    scheduled duration:       %.3f s,\n", float64(m.SchedDurationMs)/1e3)
	fmt.Fprintf(&b, "    quack time:               %.3f s,\n", float64(m.QuackDurationMs)/1e3)
	fmt.Fprintf(&b, "    good UNIX start time:     %.3f,\n", float64(m.GoodTimeUnixMs)/1e3)
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "    num coarse channels:      %d,\n", m.NumCoarseChans)
	fmt.Fprintf(&b, "    receiver channels:        %v,\n", m.ReceiverChannels)
	fmt.Fprintf(&b, "    coarse channel width:     %.3f MHz,\n", float64(m.CoarseChanWidthHz)/1e6)
	fmt.Fprintf(&b, "    observation bandwidth:    %.3f MHz,\n", float64(m.ObservationBandwidthHz)/1e6)
	fmt.Fprintf(&b, "    centre frequency:         %.3f MHz,\n", float64(m.CentreFreqHz)/1e6)
	fmt.Fprintf(&b, "    fine channel resolution:  %.3f kHz,\n", float64(m.FineChanWidthHz)/1e3)
	fmt.Fprintf(&b, "    num fine channels/coarse: %d,\n", m.NumFineChansPerCoarse)
	fmt.Fprintf(&b, "    integration time:         %.2f s,\n", float64(m.IntegrationTimeMs)/1e3)
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "    num antennas:             %d,\n", m.NumAnts)
	fmt.Fprintf(&b, "    num rf inputs:            %d,\n", m.NumRFInputs)
	fmt.Fprintf(&b, "    num baselines:            %d,\n", m.NumBaselines)
	fmt.Fprintf(&b, "    num visibility pols:      %d,\n", m.NumVisibilityPols)
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "    metafits filename:        %s,\n", m.Filename)
	fmt.Fprintf(&b, ")")
	return b.String()
}
