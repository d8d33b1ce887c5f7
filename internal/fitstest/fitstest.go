// Package fitstest synthesizes small metafits and gpubox FITS files for
// tests. Files are written with astrogo/fitsio, the same library the
// read path uses, so fixtures exercise the real on-disk layout.
package fitstest

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
)

// GpuboxOpts describes a synthetic gpubox file.
type GpuboxOpts struct {
	ObsID   int64    // OBSID primary-HDU key; omitted when 0
	CorrVer int64    // CORR_VER primary-HDU key; omitted when < 0
	NAxis1  int      // data-HDU image width (floats per row)
	NAxis2  int      // data-HDU image height (rows)
	TimesMS []uint64 // one data HDU per scan timestamp, unix milliseconds

	// Data fills the image of data HDU n (0-based over TimesMS) at flat
	// index i. A nil Data zero-fills every HDU.
	Data func(n, i int) float32

	// Weights interleaves a weights HDU after each data HDU, as the MWAX
	// correlator does.
	Weights      bool
	WeightNAxis1 int
	WeightNAxis2 int
	WeightFill   float32
}

// WriteGpubox writes a gpubox file described by opts to path.
func WriteGpubox(path string, opts GpuboxOpts) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer w.Close()

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("failed to create FITS file %s: %w", path, err)
	}
	defer f.Close()

	primary := fitsio.NewImage(8, nil)
	defer primary.Close()
	var cards []fitsio.Card
	if opts.ObsID != 0 {
		cards = append(cards, fitsio.Card{Name: "OBSID", Value: int(opts.ObsID), Comment: "observation id"})
	}
	if opts.CorrVer >= 0 {
		cards = append(cards, fitsio.Card{Name: "CORR_VER", Value: int(opts.CorrVer), Comment: "correlator version"})
	}
	if err := primary.Header().Append(cards...); err != nil {
		return fmt.Errorf("failed to build primary header: %w", err)
	}
	if err := f.Write(primary); err != nil {
		return fmt.Errorf("failed to write primary HDU: %w", err)
	}

	for n, timeMS := range opts.TimesMS {
		data := make([]float32, opts.NAxis1*opts.NAxis2)
		if opts.Data != nil {
			for i := range data {
				data[i] = opts.Data(n, i)
			}
		}
		if err := writeImageHDU(f, []int{opts.NAxis1, opts.NAxis2}, timeMS, data); err != nil {
			return fmt.Errorf("failed to write data HDU %d of %s: %w", n, path, err)
		}

		if opts.Weights {
			weights := make([]float32, opts.WeightNAxis1*opts.WeightNAxis2)
			for i := range weights {
				weights[i] = opts.WeightFill
			}
			dims := []int{opts.WeightNAxis1, opts.WeightNAxis2}
			if err := writeImageHDU(f, dims, timeMS, weights); err != nil {
				return fmt.Errorf("failed to write weights HDU %d of %s: %w", n, path, err)
			}
		}
	}

	return nil
}

func writeImageHDU(f *fitsio.File, dims []int, timeMS uint64, data []float32) error {
	im := fitsio.NewImage(-32, dims)
	defer im.Close()
	err := im.Header().Append(
		fitsio.Card{Name: "TIME", Value: int(timeMS / 1000), Comment: "scan start unix seconds"},
		fitsio.Card{Name: "MILLITIM", Value: int(timeMS % 1000), Comment: "scan start milliseconds"},
	)
	if err != nil {
		return err
	}
	if err := im.Write(&data); err != nil {
		return err
	}
	return f.Write(im)
}

// TileRow is one row of the metafits TILEDATA table. Two rows describe
// one tile: its X and Y receptors.
type TileRow struct {
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

// MetafitsOpts describes a synthetic metafits file.
type MetafitsOpts struct {
	ObsID        int64   // GPSTIME key, also the scheduled start in GPS seconds
	GoodTimeSec  float64 // GOODTIME, unix seconds
	QuackTimeSec float64 // QUACKTIM, seconds
	ExposureSec  int64   // EXPOSURE, seconds
	IntTimeSec   float64 // INTTIME, seconds
	FineChanKHz  float64 // FINECHAN, kHz
	BandwidthMHz float64 // BANDWDTH, MHz
	FreqCentMHz  float64 // FREQCENT, MHz
	Channels     []int   // CHANNELS, receiver coarse channel numbers
	Receivers    []int   // RECVRS
	Delays       []int   // DELAYS, beamformer delays
	Mode         string  // MODE
	Project      string  // PROJECT
	Creator      string  // CREATOR
	Filename     string  // FILENAME, observation name
	AttenDB      float64 // ATTEN_DB
	Tiles        []TileRow
}

// WriteMetafits writes a metafits file described by opts to path. The
// primary HDU carries the observation keys; HDU 1 is the TILEDATA
// binary table with one row per RF input.
func WriteMetafits(path string, opts MetafitsOpts) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer w.Close()

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("failed to create FITS file %s: %w", path, err)
	}
	defer f.Close()

	primary := fitsio.NewImage(8, nil)
	defer primary.Close()
	err = primary.Header().Append(
		fitsio.Card{Name: "GPSTIME", Value: int(opts.ObsID), Comment: "scheduled start, gps seconds"},
		fitsio.Card{Name: "GOODTIME", Value: opts.GoodTimeSec, Comment: "first good data, unix seconds"},
		fitsio.Card{Name: "QUACKTIM", Value: opts.QuackTimeSec, Comment: "quack time, seconds"},
		fitsio.Card{Name: "EXPOSURE", Value: int(opts.ExposureSec), Comment: "scheduled duration, seconds"},
		fitsio.Card{Name: "INTTIME", Value: opts.IntTimeSec, Comment: "correlator integration, seconds"},
		fitsio.Card{Name: "FINECHAN", Value: opts.FineChanKHz, Comment: "fine channel width, kHz"},
		fitsio.Card{Name: "BANDWDTH", Value: opts.BandwidthMHz, Comment: "observation bandwidth, MHz"},
		fitsio.Card{Name: "FREQCENT", Value: opts.FreqCentMHz, Comment: "centre frequency, MHz"},
		fitsio.Card{Name: "NINPUTS", Value: len(opts.Tiles), Comment: "number of RF inputs"},
		fitsio.Card{Name: "CHANNELS", Value: joinInts(opts.Channels), Comment: "receiver coarse channels"},
		fitsio.Card{Name: "RECVRS", Value: joinInts(opts.Receivers), Comment: "receiver numbers"},
		fitsio.Card{Name: "DELAYS", Value: joinInts(opts.Delays), Comment: "beamformer delays"},
		fitsio.Card{Name: "MODE", Value: opts.Mode, Comment: "observation mode"},
		fitsio.Card{Name: "PROJECT", Value: opts.Project, Comment: "project id"},
		fitsio.Card{Name: "CREATOR", Value: opts.Creator, Comment: "observation creator"},
		fitsio.Card{Name: "FILENAME", Value: opts.Filename, Comment: "observation name"},
		fitsio.Card{Name: "ATTEN_DB", Value: opts.AttenDB, Comment: "global attenuation, dB"},
	)
	if err != nil {
		return fmt.Errorf("failed to build primary header: %w", err)
	}
	if err := f.Write(primary); err != nil {
		return fmt.Errorf("failed to write primary HDU: %w", err)
	}

	tbl, err := fitsio.NewTable("TILEDATA", []fitsio.Column{
		{Name: "Input", Format: "J"},
		{Name: "Antenna", Format: "J"},
		{Name: "Tile", Format: "J"},
		{Name: "TileName", Format: "16A"},
		// fitsio prefixes string cells with a \x00 marker byte, so a 1A
		// column has no room for the character itself; 2A round-trips.
		{Name: "Pol", Format: "2A"},
		{Name: "Length", Format: "14A"},
		{Name: "North", Format: "E"},
		{Name: "East", Format: "E"},
		{Name: "Height", Format: "E"},
		{Name: "Flag", Format: "J"},
		{Name: "Gains", Format: "24J"},
		{Name: "Delays", Format: "16J"},
		{Name: "Rx", Format: "J"},
		{Name: "Slot", Format: "J"},
	}, fitsio.BINARY_TBL)
	if err != nil {
		return fmt.Errorf("failed to create TILEDATA table: %w", err)
	}
	defer tbl.Close()

	for i := range opts.Tiles {
		if err := tbl.Write(&opts.Tiles[i]); err != nil {
			return fmt.Errorf("failed to write TILEDATA row %d: %w", i, err)
		}
	}
	if err := f.Write(tbl); err != nil {
		return fmt.Errorf("failed to write TILEDATA HDU: %w", err)
	}

	return nil
}

// DefaultTiles builds a plausible TILEDATA block for numAnts antennas:
// inputs in file order, X before Y, one receiver slot per tile.
func DefaultTiles(numAnts int) []TileRow {
	rows := make([]TileRow, 0, numAnts*2)
	for ant := 0; ant < numAnts; ant++ {
		for p, pol := range []string{"X", "Y"} {
			row := TileRow{
				Input:    int32(ant*2 + p),
				Antenna:  int32(ant),
				Tile:     int32(11 + ant),
				TileName: fmt.Sprintf("Tile%03d", 11+ant),
				Pol:      pol,
				Length:   "EL_123.45",
				North:    float32(ant) * 2.5,
				East:     float32(ant) * -1.5,
				Height:   375.0,
				Rx:       int32(ant/8 + 1),
				Slot:     int32(ant%8 + 1),
			}
			for g := range row.Gains {
				row.Gains[g] = 64
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
