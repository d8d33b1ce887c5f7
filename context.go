// Package mwabox reads MWA correlator observations: a metafits file
// describing the observation plus the gpubox visibility files the
// correlator wrote. It classifies the files, indexes which scan lives
// where, and serves visibility reads reordered into canonical layouts.
package mwabox

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"mwabox/gpubox"
	"mwabox/internal/convert"
)

// CorrelatorContext ties an observation's metafits to its gpubox files
// and serves visibility reads out of them. It is immutable once
// constructed and safe for concurrent readers; every read opens its own
// file handle and closes it before returning.
type CorrelatorContext struct {
	// Metafits is the observation metadata block.
	Metafits *Metafits
	// Version is the correlator generation that wrote the data files.
	Version gpubox.CorrelatorVersion

	// Batches is the classified gpubox file set.
	Batches *gpubox.BatchSet
	// TimeMap records which scan lives in which file and HDU.
	TimeMap *gpubox.TimeMap
	// NumGpuboxFiles is the number of data files supplied.
	NumGpuboxFiles int

	// Timesteps is the timestep grid at the correlator cadence, covering
	// both the schedule and the data on disk. Grid points without data
	// are still indexable; reading them yields a NoDataError.
	Timesteps []TimeStep
	// NumTimesteps is len(Timesteps).
	NumTimesteps int

	// CoarseChans lists the coarse channels whose data files are
	// present, ascending by receiver channel number.
	CoarseChans []CoarseChannel
	// NumCoarseChans is len(CoarseChans).
	NumCoarseChans int

	// TimestepCoarseChanFloats is the float count of one visibility HDU:
	// baselines x fine channels x pols x 2.
	TimestepCoarseChanFloats int
	// TimestepCoarseChanWeightFloats is the float count of one weights
	// buffer: baselines x pols.
	TimestepCoarseChanWeightFloats int

	// ProvidedTimestepIndices lists the timestep indices with data from
	// at least one coarse channel, ascending.
	ProvidedTimestepIndices []int
	// ProvidedCoarseChanIndices lists the coarse channel indices with
	// data at any timestep, ascending.
	ProvidedCoarseChanIndices []int
	// ProvidedStartUnixTimeMs is the earliest scan on disk.
	ProvidedStartUnixTimeMs uint64
	// ProvidedEndUnixTimeMs is the latest scan on disk plus one step.
	ProvidedEndUnixTimeMs uint64
	// ProvidedDurationMs spans the scans on disk.
	ProvidedDurationMs uint64

	// The common window is the first contiguous run of scans where every
	// provided coarse channel delivered data. All fields are zero when
	// no such window exists; that is a normal outcome, not an error.
	CommonStartUnixTimeMs   uint64
	CommonEndUnixTimeMs     uint64
	CommonStartGPSTimeMs    uint64
	CommonEndGPSTimeMs      uint64
	CommonDurationMs        uint64
	CommonBandwidthHz       uint32
	CommonTimestepIndices   []int
	CommonCoarseChanIndices []int

	// The common good window is the common window restricted to scans at
	// or after the good-time cutoff (past the quack period).
	CommonGoodStartUnixTimeMs   uint64
	CommonGoodEndUnixTimeMs     uint64
	CommonGoodStartGPSTimeMs    uint64
	CommonGoodEndGPSTimeMs      uint64
	CommonGoodDurationMs        uint64
	CommonGoodBandwidthHz       uint32
	CommonGoodTimestepIndices   []int
	CommonGoodCoarseChanIndices []int

	// legacyTable drives the legacy input reordering; nil for MWAX.
	legacyTable []convert.BaselineMap
	// files resolves a (batch, channel id) pair to its filename.
	files map[int]map[int]string
}

// NewCorrelatorContext builds a context from a metafits file and the
// observation's gpubox files. Construction either fully succeeds or
// fails with the first problem found; no partial context is returned.
func NewCorrelatorContext(metafitsPath string, gpuboxPaths []string) (*CorrelatorContext, error) {
	m, err := NewMetafits(metafitsPath)
	if err != nil {
		return nil, err
	}

	batches, err := gpubox.DetermineBatches(gpuboxPaths)
	if err != nil {
		return nil, err
	}

	scan, err := gpubox.ScanFiles(batches, m.ObsID, 0)
	if err != nil {
		return nil, err
	}

	c := &CorrelatorContext{
		Metafits:       m,
		Version:        batches.Version,
		Batches:        batches,
		TimeMap:        scan.TimeMap,
		NumGpuboxFiles: len(batches.Files),
	}

	if err := c.validateGeometry(scan.FirstAxes); err != nil {
		return nil, err
	}
	c.TimestepCoarseChanFloats = m.NumBaselines * m.NumFineChansPerCoarse * m.NumVisibilityPols * 2
	c.TimestepCoarseChanWeightFloats = m.NumBaselines * m.NumVisibilityPols

	times := scan.TimeMap.Times()
	c.Timesteps = buildTimesteps(times, m)
	c.NumTimesteps = len(c.Timesteps)

	c.CoarseChans = buildCoarseChannels(batches.Version, m.ReceiverChannels,
		m.CoarseChanWidthHz, scan.TimeMap.ChanIDsAt(times[0]))
	c.NumCoarseChans = len(c.CoarseChans)
	if c.NumCoarseChans == 0 {
		return nil, fmt.Errorf("no coarse channel of metafits %s matches the supplied gpubox files", metafitsPath)
	}

	c.resolveCoverage()

	if batches.Version != gpubox.VersionMWAXv2 {
		c.legacyTable = convert.GenerateConversionTable(m.subfileOrdersByInput())
	}

	c.files = make(map[int]map[int]string, batches.NumBatches)
	for _, f := range batches.Files {
		chans, ok := c.files[f.Batch]
		if !ok {
			chans = make(map[int]string)
			c.files[f.Batch] = chans
		}
		chans[f.ChannelID] = f.Filename
	}

	log.Debugf("correlator context built: %s, %d timesteps, %d coarse channels, %d files",
		c.Version, c.NumTimesteps, c.NumCoarseChans, c.NumGpuboxFiles)

	return c, nil
}

// validateGeometry checks the first data HDU's axes against the
// metafits geometry. The two correlator generations transpose the axes.
func (c *CorrelatorContext) validateGeometry(axes [2]int) error {
	m := c.Metafits
	var wantX, wantY int
	if c.Version == gpubox.VersionMWAXv2 {
		wantX = m.NumFineChansPerCoarse * m.NumVisibilityPols * 2
		wantY = m.NumBaselines
	} else {
		wantX = m.NumBaselines * m.NumVisibilityPols * 2
		wantY = m.NumFineChansPerCoarse
	}
	if axes[0] != wantX || axes[1] != wantY {
		return fmt.Errorf("gpubox data HDUs are %dx%d but the metafits geometry needs %dx%d (%d baselines, %d fine channels, %d pols)",
			axes[0], axes[1], wantX, wantY, m.NumBaselines, m.NumFineChansPerCoarse, m.NumVisibilityPols)
	}
	return nil
}

// resolveCoverage fills the provided, common and common good windows
// from the time map.
func (c *CorrelatorContext) resolveCoverage() {
	m := c.Metafits
	tm := c.TimeMap

	times := tm.Times()
	c.ProvidedStartUnixTimeMs = times[0]
	c.ProvidedEndUnixTimeMs = times[len(times)-1] + m.IntegrationTimeMs
	c.ProvidedDurationMs = c.ProvidedEndUnixTimeMs - c.ProvidedStartUnixTimeMs

	c.ProvidedCoarseChanIndices = c.coarseChanIndicesFor(tm.ChanIDs())
	for i, ts := range c.Timesteps {
		if tm.NumChansAt(ts.UnixTimeMs) > 0 {
			c.ProvidedTimestepIndices = append(c.ProvidedTimestepIndices, i)
		}
	}

	if cov := tm.Coverage(m.IntegrationTimeMs); cov != nil {
		c.CommonStartUnixTimeMs = cov.StartMS
		c.CommonEndUnixTimeMs = cov.EndMS
		c.CommonStartGPSTimeMs = m.UnixToGPS(cov.StartMS)
		c.CommonEndGPSTimeMs = m.UnixToGPS(cov.EndMS)
		c.CommonDurationMs = cov.DurationMS
		c.CommonTimestepIndices = c.timestepIndicesIn(cov.StartMS, cov.EndMS)
		c.CommonCoarseChanIndices = c.coarseChanIndicesFor(cov.ChanIDs)
		c.CommonBandwidthHz = uint32(len(c.CommonCoarseChanIndices)) * m.CoarseChanWidthHz
	}

	if cov := tm.CoverageAfter(m.GoodTimeUnixMs, m.IntegrationTimeMs); cov != nil {
		c.CommonGoodStartUnixTimeMs = cov.StartMS
		c.CommonGoodEndUnixTimeMs = cov.EndMS
		c.CommonGoodStartGPSTimeMs = m.UnixToGPS(cov.StartMS)
		c.CommonGoodEndGPSTimeMs = m.UnixToGPS(cov.EndMS)
		c.CommonGoodDurationMs = cov.DurationMS
		c.CommonGoodTimestepIndices = c.timestepIndicesIn(cov.StartMS, cov.EndMS)
		c.CommonGoodCoarseChanIndices = c.coarseChanIndicesFor(cov.ChanIDs)
		c.CommonGoodBandwidthHz = uint32(len(c.CommonGoodCoarseChanIndices)) * m.CoarseChanWidthHz
	}
}

// timestepIndicesIn returns the indices of timesteps in [startMS, endMS).
func (c *CorrelatorContext) timestepIndicesIn(startMS, endMS uint64) []int {
	var idx []int
	for i, ts := range c.Timesteps {
		if ts.UnixTimeMs >= startMS && ts.UnixTimeMs < endMS {
			idx = append(idx, i)
		}
	}
	return idx
}

// coarseChanIndicesFor returns the indices of coarse channels whose
// gpubox number appears in chanIDs.
func (c *CorrelatorContext) coarseChanIndicesFor(chanIDs []int) []int {
	var idx []int
	for i, cc := range c.CoarseChans {
		if containsInt(chanIDs, cc.GpuboxNumber) {
			idx = append(idx, i)
		}
	}
	return idx
}

// String renders a human readable summary of the context.
func (c *CorrelatorContext) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CorrelatorContext (\n")
	fmt.Fprintf(&b, "    correlator version:       %s,\n", c.Version)
	fmt.Fprintf(&b, "    num gpubox files:         %d in %d batches,\n", c.NumGpuboxFiles, c.Batches.NumBatches)
	fmt.Fprintf(&b, "    num timesteps:            %d (%d provided),\n", c.NumTimesteps, len(c.ProvidedTimestepIndices))
	fmt.Fprintf(&b, "    num coarse channels:      %d (%d provided),\n", c.NumCoarseChans, len(c.ProvidedCoarseChanIndices))
	fmt.Fprintf(&b, "    provided window (UNIX):   %.3f .. %.3f (%.2f s),\n",
		float64(c.ProvidedStartUnixTimeMs)/1e3, float64(c.ProvidedEndUnixTimeMs)/1e3, float64(c.ProvidedDurationMs)/1e3)
	fmt.Fprintf(&b, "    common window (UNIX):     %.3f .. %.3f (%.2f s),\n",
		float64(c.CommonStartUnixTimeMs)/1e3, float64(c.CommonEndUnixTimeMs)/1e3, float64(c.CommonDurationMs)/1e3)
	fmt.Fprintf(&b, "    common bandwidth:         %.3f MHz,\n", float64(c.CommonBandwidthHz)/1e6)
	fmt.Fprintf(&b, "    common good window (UNIX): %.3f .. %.3f (%.2f s),\n",
		float64(c.CommonGoodStartUnixTimeMs)/1e3, float64(c.CommonGoodEndUnixTimeMs)/1e3, float64(c.CommonGoodDurationMs)/1e3)
	fmt.Fprintf(&b, "    common good bandwidth:    %.3f MHz,\n", float64(c.CommonGoodBandwidthHz)/1e6)
	fmt.Fprintf(&b, "    floats per data HDU:      %d,\n", c.TimestepCoarseChanFloats)
	fmt.Fprintf(&b, "    floats per weights read:  %d,\n", c.TimestepCoarseChanWeightFloats)
	fmt.Fprintf(&b, "\n%s\n", c.Metafits)
	fmt.Fprintf(&b, ")")
	return b.String()
}
