package gpubox

import (
	"errors"
	"fmt"
)

var (
	// ErrNoGpuboxes means no data files were supplied at all.
	ErrNoGpuboxes = errors.New("no gpubox files supplied")

	// ErrMixture means the supplied filenames match more than one
	// correlator generation's naming grammar.
	ErrMixture = errors.New("gpubox files from more than one correlator version supplied")

	// ErrUnequalHDUSizes means the data HDUs of the supplied files do
	// not all hold the same number of floats.
	ErrUnequalHDUSizes = errors.New("gpubox files have unequal data HDU sizes")
)

// UnrecognisedError reports a filename that matches none of the known
// gpubox naming grammars.
type UnrecognisedError struct {
	Filename string
}

func (e *UnrecognisedError) Error() string {
	return fmt.Sprintf("unrecognised gpubox filename %s", e.Filename)
}

// BatchMissingError reports a gap in the batch number sequence.
type BatchMissingError struct {
	Expected int
	Got      int
}

func (e *BatchMissingError) Error() string {
	return fmt.Sprintf("gpubox batch numbers are not contiguous: expected batch %d, got %d", e.Expected, e.Got)
}

// UnevenCountError reports batches holding different numbers of files.
type UnevenCountError struct {
	Expected int
	Got      int
}

func (e *UnevenCountError) Error() string {
	return fmt.Sprintf("gpubox batches hold unequal file counts: expected %d, got %d", e.Expected, e.Got)
}

// NoDataHDUsError reports a gpubox file with no data HDUs after the
// primary HDU.
type NoDataHDUsError struct {
	Filename string
}

func (e *NoDataHDUsError) Error() string {
	return fmt.Sprintf("gpubox file %s has no data HDUs", e.Filename)
}

// CorrVerMissingError reports an MWAX-named file lacking the CORR_VER
// header key.
type CorrVerMissingError struct {
	Filename string
}

func (e *CorrVerMissingError) Error() string {
	return fmt.Sprintf("gpubox file %s is named like MWAX but has no CORR_VER key", e.Filename)
}

// CorrVerMismatchError reports an MWAX file declaring a correlator
// version other than 2.
type CorrVerMismatchError struct {
	Filename string
	Got      int64
}

func (e *CorrVerMismatchError) Error() string {
	return fmt.Sprintf("gpubox file %s declares CORR_VER %d, want 2", e.Filename, e.Got)
}

// CorrVerPresentError reports a legacy-named file that declares a
// CORR_VER key; legacy correlator files never carry one.
type CorrVerPresentError struct {
	Filename string
	Got      int64
}

func (e *CorrVerPresentError) Error() string {
	return fmt.Sprintf("gpubox file %s is named like the legacy correlator but declares CORR_VER %d", e.Filename, e.Got)
}

// MissingObsIDError reports a gpubox file lacking the OBSID header key.
type MissingObsIDError struct {
	Filename string
}

func (e *MissingObsIDError) Error() string {
	return fmt.Sprintf("gpubox file %s has no OBSID key; is it an MWA correlator file?", e.Filename)
}

// ObsIDMismatchError reports a gpubox file whose OBSID disagrees with
// the metafits observation id.
type ObsIDMismatchError struct {
	Filename string
	Expected uint32
	Got      uint32
}

func (e *ObsIDMismatchError) Error() string {
	return fmt.Sprintf("gpubox file %s declares obs id %d, metafits says %d", e.Filename, e.Got, e.Expected)
}
