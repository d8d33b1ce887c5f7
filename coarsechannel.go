package mwabox

import (
	"fmt"
	"sort"

	"mwabox/gpubox"
)

// CoarseChannel is one coarse channel of the observation, carrying the
// three numbering schemes that describe it and its sky frequencies.
type CoarseChannel struct {
	// CorrChanNumber is the correlator's ordering of this channel,
	// 0-based over the observation.
	CorrChanNumber int
	// RecChanNumber is the receiver (sky) channel number, 0 to 255.
	RecChanNumber int
	// GpuboxNumber ties the channel to its data files: the gpubox
	// number for legacy observations, the receiver channel number for
	// MWAX observations.
	GpuboxNumber int
	// ChanWidthHz is the channel bandwidth.
	ChanWidthHz uint32
	// ChanStartHz is the sky frequency at the bottom edge.
	ChanStartHz uint32
	// ChanCentreHz is the sky frequency at the centre.
	ChanCentreHz uint32
	// ChanEndHz is the sky frequency at the top edge.
	ChanEndHz uint32
}

// buildCoarseChannels derives the observation's coarse channels from
// the metafits receiver channel list, keeping only channels whose data
// files are present. A nil presentChanIDs keeps every channel.
//
// The legacy correlator writes receiver channels above 128 in
// descending order, so their correlator numbers count down from the
// end of the observation's channel range.
func buildCoarseChannels(version gpubox.CorrelatorVersion, recChans []int, widthHz uint32, presentChanIDs []int) []CoarseChannel {
	recs := append([]int(nil), recChans...)
	sort.Ints(recs)

	firstOver := -1
	for i, rc := range recs {
		if rc > 128 {
			firstOver = i
			break
		}
	}

	legacy := version == gpubox.VersionLegacy || version == gpubox.VersionOldLegacy
	chans := make([]CoarseChannel, 0, len(recs))
	for i, rc := range recs {
		corr := i
		if legacy && rc > 128 {
			corr = (len(recs) - 1) - (i - firstOver)
		}

		gpuboxNum := rc
		if legacy {
			gpuboxNum = corr + 1
		}
		if presentChanIDs != nil && !containsInt(presentChanIDs, gpuboxNum) {
			continue
		}

		centre := uint32(rc) * widthHz
		chans = append(chans, CoarseChannel{
			CorrChanNumber: corr,
			RecChanNumber:  rc,
			GpuboxNumber:   gpuboxNum,
			ChanWidthHz:    widthHz,
			ChanStartHz:    centre - widthHz/2,
			ChanCentreHz:   centre,
			ChanEndHz:      centre + widthHz/2,
		})
	}
	return chans
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func (c CoarseChannel) String() string {
	return fmt.Sprintf("gpu=%d corr=%d rec=%d @ %.3f MHz",
		c.GpuboxNumber, c.CorrChanNumber, c.RecChanNumber, float64(c.ChanCentreHz)/1e6)
}
