package mwabox

import "fmt"

// TimestepIndexError is returned by the read methods when the requested
// timestep index is outside the context's timestep list.
type TimestepIndexError struct {
	Index int // requested timestep index
	Max   int // largest valid index
}

func (e *TimestepIndexError) Error() string {
	return fmt.Sprintf("invalid timestep index %d; valid indices are 0 to %d", e.Index, e.Max)
}

// CoarseChanIndexError is returned by the read methods when the
// requested coarse channel index is outside the context's channel list.
type CoarseChanIndexError struct {
	Index int // requested coarse channel index
	Max   int // largest valid index
}

func (e *CoarseChanIndexError) Error() string {
	return fmt.Sprintf("invalid coarse channel index %d; valid indices are 0 to %d", e.Index, e.Max)
}

// NoDataError is returned by the read methods when both indices are in
// range but no file covers that exact timestep and coarse channel, for
// example when only part of an observation was delivered.
type NoDataError struct {
	Timestep   int // requested timestep index
	CoarseChan int // requested coarse channel index
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data exists for timestep index %d and coarse channel index %d", e.Timestep, e.CoarseChan)
}
