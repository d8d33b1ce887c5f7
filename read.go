package mwabox

import (
	"fmt"

	"mwabox/gpubox"
	"mwabox/internal/convert"
	"mwabox/internal/fits"
)

// resolveScan maps a (timestep, coarse channel) index pair to the file
// and HDU holding that scan. Both indices are bounds checked, then the
// pair must actually have data; each failure is a distinct error type
// so callers can branch on what went wrong.
func (c *CorrelatorContext) resolveScan(timestepIdx, coarseChanIdx int) (string, int, error) {
	if timestepIdx < 0 || timestepIdx >= c.NumTimesteps {
		return "", 0, &TimestepIndexError{Index: timestepIdx, Max: c.NumTimesteps - 1}
	}
	if coarseChanIdx < 0 || coarseChanIdx >= c.NumCoarseChans {
		return "", 0, &CoarseChanIndexError{Index: coarseChanIdx, Max: c.NumCoarseChans - 1}
	}

	timeMS := c.Timesteps[timestepIdx].UnixTimeMs
	chanID := c.CoarseChans[coarseChanIdx].GpuboxNumber
	ref, ok := c.TimeMap.Lookup(timeMS, chanID)
	if !ok {
		return "", 0, &NoDataError{Timestep: timestepIdx, CoarseChan: coarseChanIdx}
	}
	filename, ok := c.files[ref.Batch][chanID]
	if !ok {
		return "", 0, fmt.Errorf("no gpubox file recorded for batch %d channel %d", ref.Batch, chanID)
	}
	return filename, ref.HDU, nil
}

// readHDU opens the file, pulls one HDU's floats and checks the count.
func readHDU(filename string, hdu, wantFloats int) ([]float32, error) {
	f, err := fits.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := f.ImageFloat32(hdu)
	if err != nil {
		return nil, err
	}
	if len(data) != wantFloats {
		return nil, fmt.Errorf("HDU %d of %s holds %d floats, expected %d", hdu, filename, len(data), wantFloats)
	}
	return data, nil
}

// ReadByBaseline reads one scan as interleaved (real, imaginary) float
// pairs in baseline major order: every fine channel of baseline 0, then
// of baseline 1, and so on, with the four pol products innermost.
func (c *CorrelatorContext) ReadByBaseline(timestepIdx, coarseChanIdx int) ([]float32, error) {
	dst := make([]float32, c.TimestepCoarseChanFloats)
	if err := c.ReadByBaselineInto(timestepIdx, coarseChanIdx, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// ReadByBaselineInto is ReadByBaseline into a caller supplied buffer of
// exactly TimestepCoarseChanFloats floats, for repeated reads that want
// to avoid per-call allocation.
func (c *CorrelatorContext) ReadByBaselineInto(timestepIdx, coarseChanIdx int, dst []float32) error {
	if len(dst) != c.TimestepCoarseChanFloats {
		return fmt.Errorf("destination buffer holds %d floats, need %d", len(dst), c.TimestepCoarseChanFloats)
	}
	filename, hdu, err := c.resolveScan(timestepIdx, coarseChanIdx)
	if err != nil {
		return err
	}
	data, err := readHDU(filename, hdu, c.TimestepCoarseChanFloats)
	if err != nil {
		return err
	}

	// MWAX already writes baseline major order with canonical antenna
	// numbering; only the legacy correlator needs the table reorder.
	if c.Version == gpubox.VersionMWAXv2 {
		copy(dst, data)
		return nil
	}
	convert.LegacyToBaselineOrder(c.legacyTable, data, dst, c.Metafits.NumFineChansPerCoarse)
	return nil
}

// ReadByFrequency reads one scan as interleaved (real, imaginary) float
// pairs in frequency major order: every baseline of fine channel 0,
// then of fine channel 1, and so on, with the four pol products
// innermost.
func (c *CorrelatorContext) ReadByFrequency(timestepIdx, coarseChanIdx int) ([]float32, error) {
	dst := make([]float32, c.TimestepCoarseChanFloats)
	if err := c.ReadByFrequencyInto(timestepIdx, coarseChanIdx, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// ReadByFrequencyInto is ReadByFrequency into a caller supplied buffer
// of exactly TimestepCoarseChanFloats floats.
func (c *CorrelatorContext) ReadByFrequencyInto(timestepIdx, coarseChanIdx int, dst []float32) error {
	if len(dst) != c.TimestepCoarseChanFloats {
		return fmt.Errorf("destination buffer holds %d floats, need %d", len(dst), c.TimestepCoarseChanFloats)
	}
	filename, hdu, err := c.resolveScan(timestepIdx, coarseChanIdx)
	if err != nil {
		return err
	}
	data, err := readHDU(filename, hdu, c.TimestepCoarseChanFloats)
	if err != nil {
		return err
	}

	m := c.Metafits
	if c.Version == gpubox.VersionMWAXv2 {
		convert.MWAXToFrequencyOrder(data, dst, m.NumBaselines, m.NumFineChansPerCoarse, m.NumVisibilityPols)
		return nil
	}
	convert.LegacyToFrequencyOrder(c.legacyTable, data, dst, m.NumFineChansPerCoarse)
	return nil
}

// ReadWeightsByBaseline reads the per baseline, per pol weights of one
// scan. MWAX interleaves a weights HDU after every data HDU; the legacy
// correlator had no weights concept, so legacy reads yield all ones.
func (c *CorrelatorContext) ReadWeightsByBaseline(timestepIdx, coarseChanIdx int) ([]float32, error) {
	dst := make([]float32, c.TimestepCoarseChanWeightFloats)
	if err := c.ReadWeightsByBaselineInto(timestepIdx, coarseChanIdx, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// ReadWeightsByBaselineInto is ReadWeightsByBaseline into a caller
// supplied buffer of exactly TimestepCoarseChanWeightFloats floats.
func (c *CorrelatorContext) ReadWeightsByBaselineInto(timestepIdx, coarseChanIdx int, dst []float32) error {
	if len(dst) != c.TimestepCoarseChanWeightFloats {
		return fmt.Errorf("destination buffer holds %d floats, need %d", len(dst), c.TimestepCoarseChanWeightFloats)
	}
	filename, hdu, err := c.resolveScan(timestepIdx, coarseChanIdx)
	if err != nil {
		return err
	}

	if c.Version != gpubox.VersionMWAXv2 {
		for i := range dst {
			dst[i] = 1
		}
		return nil
	}

	data, err := readHDU(filename, hdu+1, c.TimestepCoarseChanWeightFloats)
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}
