package gpubox

import (
	"context"
	"errors"
	"runtime"
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"mwabox/internal/fits"
)

// HDURef locates one scan: the batch it lives in and the HDU index
// inside that batch's file for the channel in question.
type HDURef struct {
	Batch int
	HDU   int
}

// TimeMap records, for every scan start time seen across the input
// files, which channels delivered data and where each scan lives.
// It is immutable once built and safe for concurrent readers.
type TimeMap struct {
	entries map[uint64]map[int]HDURef
	times   []uint64
}

// Len returns the number of distinct scan times in the map.
func (m *TimeMap) Len() int { return len(m.times) }

// Times returns every scan time in the map, ascending.
func (m *TimeMap) Times() []uint64 {
	out := make([]uint64, len(m.times))
	copy(out, m.times)
	return out
}

// ChanIDs returns the union of channel ids appearing anywhere in the
// map, ascending.
func (m *TimeMap) ChanIDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, chans := range m.entries {
		for id := range chans {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Ints(ids)
	return ids
}

// ChanIDsAt returns the channel ids present at one scan time, ascending.
func (m *TimeMap) ChanIDsAt(timeMS uint64) []int {
	chans := m.entries[timeMS]
	ids := make([]int, 0, len(chans))
	for id := range chans {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// NumChansAt returns how many channels delivered data at one scan time.
func (m *TimeMap) NumChansAt(timeMS uint64) int { return len(m.entries[timeMS]) }

// Lookup resolves a (scan time, channel id) pair to its batch and HDU.
// The boolean reports whether the pair has data.
func (m *TimeMap) Lookup(timeMS uint64, chanID int) (HDURef, bool) {
	ref, ok := m.entries[timeMS][chanID]
	return ref, ok
}

func newTimeMap() *TimeMap {
	return &TimeMap{entries: make(map[uint64]map[int]HDURef)}
}

// insert records a scan, keeping the first write on a duplicate
// (time, channel) pair; duplicates cannot occur under valid input.
func (m *TimeMap) insert(timeMS uint64, chanID int, ref HDURef) {
	chans, ok := m.entries[timeMS]
	if !ok {
		chans = make(map[int]HDURef)
		m.entries[timeMS] = chans
	}
	if _, dup := chans[chanID]; !dup {
		chans[chanID] = ref
	}
}

func (m *TimeMap) finalize() {
	m.times = make([]uint64, 0, len(m.entries))
	for t := range m.entries {
		m.times = append(m.times, t)
	}
	sort.Slice(m.times, func(i, j int) bool { return m.times[i] < m.times[j] })
}

// ScanResult carries everything learned from walking the gpubox files.
type ScanResult struct {
	TimeMap *TimeMap

	// HDUFloats is the float count of one data HDU, identical across
	// every file scanned.
	HDUFloats int

	// FirstAxes holds NAXIS1 and NAXIS2 of the first data HDU of the
	// first file, for validation against the metafits geometry.
	FirstAxes [2]int
}

// ScanFiles opens every file in the batch set, validates it against
// the observation, and merges the per-file scans into one TimeMap.
//
// Files are scanned in parallel, at most workers at a time (the number
// of CPUs when workers <= 0). The merge is order-insensitive; on
// failure the error from the earliest file in batch order is returned
// and no partial result is exposed.
func ScanFiles(batches *BatchSet, obsID uint32, workers int) (*ScanResult, error) {
	files := batches.Files
	if len(files) == 0 {
		return nil, ErrNoGpuboxes
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	log.Debugf("scanning %d gpubox files with %d workers", len(files), workers)

	scans := make([]fileScan, len(files))
	ctx := context.Background()
	sema := semaphore.NewWeighted(int64(workers))
	for i := range files {
		if err := sema.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		go func(i int) {
			defer sema.Release(1)
			scans[i] = scanFile(files[i].Filename, batches.Version, obsID)
		}(i)
	}
	if err := sema.Acquire(ctx, int64(workers)); err != nil {
		return nil, err
	}

	tm := newTimeMap()
	floats := -1
	var first [2]int
	for i, s := range scans {
		if s.err != nil {
			return nil, s.err
		}
		if floats < 0 {
			floats = s.floats
			first = s.axes
		} else if s.floats != floats {
			return nil, ErrUnequalHDUSizes
		}
		for t, hdu := range s.times {
			tm.insert(t, files[i].ChannelID, HDURef{Batch: files[i].Batch, HDU: hdu})
		}
	}
	tm.finalize()

	log.Debugf("time map built: %d scan times across %d channels", tm.Len(), len(tm.ChanIDs()))

	return &ScanResult{TimeMap: tm, HDUFloats: floats, FirstAxes: first}, nil
}

type fileScan struct {
	times  map[uint64]int
	axes   [2]int
	floats int
	err    error
}

// scanFile validates one gpubox file and maps its scan times to HDU
// indices. HDU 0 holds only file-level metadata and is skipped; MWAX
// files interleave a weights HDU after every data HDU, so those are
// stepped over as well.
func scanFile(filename string, version CorrelatorVersion, obsID uint32) fileScan {
	f, err := fits.Open(filename)
	if err != nil {
		return fileScan{err: err}
	}
	defer f.Close()

	if f.NumHDUs() < 2 {
		return fileScan{err: &NoDataHDUsError{Filename: filename}}
	}
	if err := validateCorrVer(f, version); err != nil {
		return fileScan{err: err}
	}
	if err := validateObsID(f, obsID); err != nil {
		return fileScan{err: err}
	}

	axes, err := f.Axes(1)
	if err != nil {
		return fileScan{err: err}
	}
	var scan fileScan
	scan.floats = 1
	for _, ax := range axes {
		scan.floats *= ax
	}
	if len(axes) >= 2 {
		scan.axes = [2]int{axes[0], axes[1]}
	}

	step := 1
	if version == VersionMWAXv2 {
		step = 2
	}
	scan.times = make(map[uint64]int)
	for hdu := 1; hdu < f.NumHDUs(); hdu += step {
		sec, err := f.IntKey(hdu, "TIME")
		if err != nil {
			return fileScan{err: err}
		}
		milli, err := f.IntKey(hdu, "MILLITIM")
		if err != nil {
			return fileScan{err: err}
		}
		scan.times[uint64(sec)*1000+uint64(milli)] = hdu
	}
	return scan
}

func validateCorrVer(f *fits.File, version CorrelatorVersion) error {
	v, present, err := f.OptionalIntKey(0, "CORR_VER")
	if err != nil {
		return err
	}
	if version == VersionMWAXv2 {
		if !present {
			return &CorrVerMissingError{Filename: f.Filename()}
		}
		if v != 2 {
			return &CorrVerMismatchError{Filename: f.Filename(), Got: v}
		}
		return nil
	}
	if present {
		return &CorrVerPresentError{Filename: f.Filename(), Got: v}
	}
	return nil
}

func validateObsID(f *fits.File, obsID uint32) error {
	v, err := f.IntKey(0, "OBSID")
	if err != nil {
		var missing *fits.MissingKeyError
		if errors.As(err, &missing) {
			return &MissingObsIDError{Filename: f.Filename()}
		}
		return err
	}
	if uint32(v) != obsID {
		return &ObsIDMismatchError{Filename: f.Filename(), Expected: obsID, Got: uint32(v)}
	}
	return nil
}
