// Package convert reorders correlator output from the hardware-native
// layouts into canonical baseline-major or frequency-major order.
//
// The legacy correlator emits visibilities in an order imposed by its
// fine-PFB wiring; a precomputed per-baseline table maps that order to
// the standard upper-triangle layout, conjugating where the hardware
// stored the mirrored pair. MWAX already emits canonical antenna
// ordering, so its conversion is a plain block transpose.
//
// All buffers are flat float32 slices of interleaved (real, imaginary)
// pairs. Callers violate the documented preconditions at their peril:
// geometry mismatches panic rather than return errors, since they can
// only arise from an internal invariant break.
package convert

import "fmt"

// finePFBReorder flips the bits of an 8-bit slot position so bit order
// abcdefgh becomes abghcdef, undoing the order imposed by the fine-PFB
// hardware. The constants are an opaque hardware contract; do not
// "clean them up".
func finePFBReorder(pos int) int {
	return (pos & 0xc0) | ((pos & 0x03) << 4) | ((pos & 0x3c) >> 2)
}

// BaselineMap tells a legacy conversion where in the input HDU each of
// one baseline's four polarisation products lives, and whether the
// stored value is the conjugate of the wanted one.
type BaselineMap struct {
	Baseline int
	Ant1     int
	Ant2     int

	XXIndex     int
	XXConjugate bool
	XYIndex     int
	XYConjugate bool
	YXIndex     int
	YXConjugate bool
	YYIndex     int
	YYConjugate bool
}

// Legacy observations always have 128 tiles, so 256 RF inputs.
const legacyInputs = 256

func baselineCount(ants int) int { return ants * (ants + 1) / 2 }

// GenerateConversionTable builds the per-baseline lookup table used to
// reorder legacy correlator HDUs.
//
// mwaxOrder holds the subfile order of each RF input, listed in
// metafits input order; its length must be exactly 256, the fixed
// input count of the legacy correlator.
func GenerateConversionTable(mwaxOrder []int) []BaselineMap {
	if len(mwaxOrder) != legacyInputs {
		panic(fmt.Sprintf("convert: conversion table needs %d rf inputs, got %d", legacyInputs, len(mwaxOrder)))
	}

	full := generateFullMatrix(mwaxOrder)

	// Walk the 256x256 square in the order of the wanted triangular
	// output. The matrix holds complex-pair indices; multiplying by 2
	// turns them into float indices (imaginary = real + 1).
	table := make([]BaselineMap, 0, baselineCount(legacyInputs/2))
	baseline := 0
	for rowTile := 0; rowTile < legacyInputs/2; rowTile++ {
		for colTile := rowTile; colTile < legacyInputs/2; colTile++ {
			xx := full[(rowTile*2)<<8|(colTile*2)] * 2
			xy := full[(rowTile*2)<<8|(colTile*2+1)] * 2
			yx := full[(rowTile*2+1)<<8|(colTile*2)] * 2
			yy := full[(rowTile*2+1)<<8|(colTile*2+1)] * 2
			table = append(table, BaselineMap{
				Baseline:    baseline,
				Ant1:        rowTile,
				Ant2:        colTile,
				XXIndex:     abs(xx),
				XXConjugate: xx < 0,
				XYIndex:     abs(xy),
				XYConjugate: xy < 0,
				YXIndex:     abs(yx),
				YXConjugate: yx < 0,
				YYIndex:     abs(yy),
				YYConjugate: yy < 0,
			})
			baseline++
		}
	}
	return table
}

// generateFullMatrix maps every (rf input, rf input) pair to the index
// of its complex value in a legacy HDU. Positive entries index the
// stored value directly; negative entries mean "take the value at the
// absolute index and conjugate it".
func generateFullMatrix(mwaxOrder []int) []int {
	full := make([]int, legacyInputs*legacyInputs)
	for i := range full {
		full[i] = -1
	}

	// Iterate the legacy complex values in the order they appear in an
	// HDU: 2x2 correlation blocks, columns advancing over row pairs up
	// to the diagonal. Lookups go through finePFBReorder because the
	// hardware walks inputs in fine-PFB order, not metafits order.
	src := 0
	for colOrder := 0; colOrder < legacyInputs; colOrder += 2 {
		colA := mwaxOrder[finePFBReorder(colOrder)]
		colB := mwaxOrder[finePFBReorder(colOrder+1)]
		for rowOrder := 0; rowOrder <= colOrder; rowOrder += 2 {
			row1 := mwaxOrder[finePFBReorder(rowOrder)]
			row2 := mwaxOrder[finePFBReorder(rowOrder+1)]

			full[row1<<8|colA] = src // top left of the 2x2 block
			src++
			// The old correlator never emits the redundant bottom-left
			// value of a diagonal block, but the source index still
			// advances as if it had.
			if colOrder != rowOrder {
				full[row2<<8|colA] = src // bottom left
			}
			src++
			full[row1<<8|colB] = src // top right
			src++
			full[row2<<8|colB] = src // bottom right
			src++
		}
	}

	// Every cell left unfilled is the mirror of a stored one: point at
	// the mirror and mark it for conjugation by negating.
	for row := 0; row < legacyInputs; row++ {
		for col := 0; col < legacyInputs; col++ {
			if full[row<<8|col] == -1 {
				full[row<<8|col] = -full[col<<8|row]
			}
		}
	}

	return full
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Floats per baseline per fine channel: xx_r, xx_i, xy_r, xy_i, yx_r,
// yx_i, yy_r, yy_i.
const floatsPerBaselineFineChan = 8

// LegacyToBaselineOrder reorders one legacy HDU into [baseline][fine
// channel][pol][real, imag] order. Both buffers must hold at least
// numFineChans x 8256 x 8 floats.
func LegacyToBaselineOrder(table []BaselineMap, in, out []float32, numFineChans int) {
	numBaselines := baselineCount(legacyInputs / 2)
	floatsPerFineChan := numBaselines * floatsPerBaselineFineChan
	floatsPerBaseline := floatsPerBaselineFineChan * numFineChans

	checkBuffers(len(in), len(out), numFineChans*floatsPerFineChan)

	for fineChan := 0; fineChan < numFineChans; fineChan++ {
		// The input holds one row of all baselines per fine channel;
		// the output strides fine channels within each baseline.
		src := fineChan * floatsPerFineChan
		for i := range table {
			dst := i*floatsPerBaseline + fineChan*floatsPerBaselineFineChan
			copyBaseline(&table[i], in, out, src, dst)
		}
	}
}

// LegacyToFrequencyOrder reorders one legacy HDU into [fine channel]
// [baseline][pol][real, imag] order. Both buffers must hold at least
// numFineChans x 8256 x 8 floats.
func LegacyToFrequencyOrder(table []BaselineMap, in, out []float32, numFineChans int) {
	numBaselines := baselineCount(legacyInputs / 2)
	floatsPerFineChan := numBaselines * floatsPerBaselineFineChan

	checkBuffers(len(in), len(out), numFineChans*floatsPerFineChan)

	for fineChan := 0; fineChan < numFineChans; fineChan++ {
		// Input and output both keep fine channel as the outer stride;
		// only the within-channel baseline order changes.
		src := fineChan * floatsPerFineChan
		for i := range table {
			dst := src + i*floatsPerBaselineFineChan
			copyBaseline(&table[i], in, out, src, dst)
		}
	}
}

// copyBaseline moves one baseline's four polarisation products from a
// legacy HDU row starting at src to the canonical layout at dst.
func copyBaseline(b *BaselineMap, in, out []float32, src, dst int) {
	out[dst] = in[src+b.XXIndex]
	if b.XXConjugate {
		out[dst+1] = -in[src+b.XXIndex+1]
	} else {
		out[dst+1] = in[src+b.XXIndex+1]
	}

	out[dst+2] = in[src+b.XYIndex]
	if b.XYConjugate {
		out[dst+3] = -in[src+b.XYIndex+1]
	} else {
		out[dst+3] = in[src+b.XYIndex+1]
	}

	out[dst+4] = in[src+b.YXIndex]
	if b.YXConjugate {
		out[dst+5] = -in[src+b.YXIndex+1]
	} else {
		out[dst+5] = in[src+b.YXIndex+1]
	}

	out[dst+6] = in[src+b.YYIndex]
	if b.YYConjugate {
		out[dst+7] = -in[src+b.YYIndex+1]
	} else {
		out[dst+7] = in[src+b.YYIndex+1]
	}

	// Conjugate everything so the result lands in the canonical
	// triangle convention.
	out[dst+1] = -out[dst+1]
	out[dst+3] = -out[dst+3]
	out[dst+5] = -out[dst+5]
	out[dst+7] = -out[dst+7]
}

// MWAXToFrequencyOrder transposes an MWAX HDU from [baseline][fine
// channel][pol][real, imag] order to [fine channel][baseline][pol]
// [real, imag] order. No signs change: MWAX already emits canonical
// antenna ordering. Calling it again with numBaselines and
// numFineChans swapped inverts the transform exactly.
func MWAXToFrequencyOrder(in, out []float32, numBaselines, numFineChans, numVisibilityPols int) {
	floatsPerBaselineFineChan := numVisibilityPols * 2
	floatsPerBaseline := numFineChans * floatsPerBaselineFineChan
	floatsPerFineChan := numBaselines * floatsPerBaselineFineChan

	checkBuffers(len(in), len(out), numFineChans*floatsPerFineChan)

	for baseline := 0; baseline < numBaselines; baseline++ {
		for fineChan := 0; fineChan < numFineChans; fineChan++ {
			src := baseline*floatsPerBaseline + fineChan*floatsPerBaselineFineChan
			dst := fineChan*floatsPerFineChan + baseline*floatsPerBaselineFineChan
			copy(out[dst:dst+floatsPerBaselineFineChan], in[src:src+floatsPerBaselineFineChan])
		}
	}
}

func checkBuffers(inLen, outLen, need int) {
	if inLen < need {
		panic(fmt.Sprintf("convert: input buffer holds %d floats, need %d", inLen, need))
	}
	if outLen < need {
		panic(fmt.Sprintf("convert: output buffer holds %d floats, need %d", outLen, need))
	}
}
