package gpubox

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Filename grammars for the three correlator generations. Matched
// against the base name; the directory part carries no meaning.
var (
	reMWAX        = regexp.MustCompile(`^\d{10}_\d{8,}_ch(\d{3})_(\d{3})\.fits$`)
	reLegacyBatch = regexp.MustCompile(`^\d{10}_\d{14}_gpubox(\d{2})_(\d{2})\.fits$`)
	reOldLegacy   = regexp.MustCompile(`^\d{10}_\d{14}_gpubox(\d{2})\.fits$`)
)

// GpuboxFile is one data file classified by the filename grammar.
// ChannelID is the gpubox number for legacy files and the receiver
// coarse channel number for MWAX files.
type GpuboxFile struct {
	Filename  string
	ChannelID int
	Batch     int
}

// BatchSet is the classified set of gpubox files for one observation,
// sorted by (batch, channel id).
type BatchSet struct {
	Version    CorrelatorVersion
	Files      []GpuboxFile
	NumBatches int
}

// ChannelIDs returns the distinct channel ids present in the set,
// ascending.
func (b *BatchSet) ChannelIDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, f := range b.Files {
		if !seen[f.ChannelID] {
			seen[f.ChannelID] = true
			ids = append(ids, f.ChannelID)
		}
	}
	sort.Ints(ids)
	return ids
}

// DetermineBatches classifies filenames into batches and channels.
// It is a pure parse over the supplied strings and never touches the
// filesystem.
//
// It fails if no files were supplied, if filenames from more than one
// correlator generation are mixed, if a filename matches no known
// grammar, if the batch numbers are not the contiguous range 0..N-1,
// or if the batches hold unequal numbers of files.
func DetermineBatches(filenames []string) (*BatchSet, error) {
	if len(filenames) == 0 {
		return nil, ErrNoGpuboxes
	}

	var (
		version    CorrelatorVersion
		versionSet bool
	)
	files := make([]GpuboxFile, 0, len(filenames))
	for _, path := range filenames {
		base := filepath.Base(path)
		var (
			ver    CorrelatorVersion
			chanID int
			batch  int
		)
		switch {
		case reMWAX.MatchString(base):
			m := reMWAX.FindStringSubmatch(base)
			ver = VersionMWAXv2
			// The regex guarantees both captures parse.
			chanID, _ = strconv.Atoi(m[1])
			batch, _ = strconv.Atoi(m[2])
		case reLegacyBatch.MatchString(base):
			m := reLegacyBatch.FindStringSubmatch(base)
			ver = VersionLegacy
			chanID, _ = strconv.Atoi(m[1])
			batch, _ = strconv.Atoi(m[2])
		case reOldLegacy.MatchString(base):
			m := reOldLegacy.FindStringSubmatch(base)
			ver = VersionOldLegacy
			chanID, _ = strconv.Atoi(m[1])
			// The batchless grammar has a single implicit batch.
			batch = 0
		default:
			return nil, &UnrecognisedError{Filename: path}
		}

		if !versionSet {
			version = ver
			versionSet = true
		} else if ver != version {
			return nil, ErrMixture
		}
		files = append(files, GpuboxFile{Filename: path, ChannelID: chanID, Batch: batch})
	}

	// Batch numbers must be exactly 0..N-1 and every batch must hold
	// the same number of files.
	counts := make(map[int]int)
	for _, f := range files {
		counts[f.Batch]++
	}
	batchNums := make([]int, 0, len(counts))
	for b := range counts {
		batchNums = append(batchNums, b)
	}
	sort.Ints(batchNums)
	for i, b := range batchNums {
		if i != b {
			return nil, &BatchMissingError{Expected: i, Got: b}
		}
	}
	want := counts[batchNums[0]]
	for _, b := range batchNums[1:] {
		if counts[b] != want {
			return nil, &UnevenCountError{Expected: want, Got: counts[b]}
		}
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Batch != files[j].Batch {
			return files[i].Batch < files[j].Batch
		}
		return files[i].ChannelID < files[j].ChannelID
	})

	return &BatchSet{Version: version, Files: files, NumBatches: len(batchNums)}, nil
}
