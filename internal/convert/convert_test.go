package convert

import (
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestFinePFBReorder(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 0},
		{1, 16},
		{4, 1},
		{5, 17},
		{8, 2},
		{12, 3},
		{255, 255},
	}
	for _, c := range cases {
		if got := finePFBReorder(c.in); got != c.want {
			t.Errorf("finePFBReorder(%d): expected %d, got %d", c.in, c.want, got)
		}
	}

	// The reorder must be a permutation of 0..255.
	seen := make(map[int]bool)
	for i := 0; i < 256; i++ {
		got := finePFBReorder(i)
		if got < 0 || got > 255 {
			t.Fatalf("finePFBReorder(%d) out of range: %d", i, got)
		}
		if seen[got] {
			t.Fatalf("finePFBReorder(%d) duplicates value %d", i, got)
		}
		seen[got] = true
	}
}

func identityOrder() []int {
	order := make([]int, legacyInputs)
	for i := range order {
		order[i] = i
	}
	return order
}

func TestGenerateConversionTableIdentityOrder(t *testing.T) {
	table := GenerateConversionTable(identityOrder())

	if len(table) != 8256 {
		t.Fatalf("Expected 8256 baseline entries, got %d", len(table))
	}

	// First auto-correlation. The YX product is never stored for a
	// tile against itself; it must point at XY's slot, conjugated.
	first := table[0]
	if first.Ant1 != 0 || first.Ant2 != 0 {
		t.Errorf("Expected entry 0 to map antennas (0, 0), got (%d, %d)", first.Ant1, first.Ant2)
	}
	if first.XXIndex != 0 || first.XXConjugate {
		t.Errorf("Expected XX at index 0 unconjugated, got index %d conjugate %v", first.XXIndex, first.XXConjugate)
	}
	if first.XYIndex != 24 || first.XYConjugate {
		t.Errorf("Expected XY at index 24 unconjugated, got index %d conjugate %v", first.XYIndex, first.XYConjugate)
	}
	if first.YXIndex != 24 || !first.YXConjugate {
		t.Errorf("Expected YX at index 24 conjugated, got index %d conjugate %v", first.YXIndex, first.YXConjugate)
	}
	if first.YYIndex != 40 || first.YYConjugate {
		t.Errorf("Expected YY at index 40 unconjugated, got index %d conjugate %v", first.YYIndex, first.YYConjugate)
	}

	// First cross-correlation: all four products stored directly.
	second := table[1]
	if second.Ant1 != 0 || second.Ant2 != 1 {
		t.Errorf("Expected entry 1 to map antennas (0, 1), got (%d, %d)", second.Ant1, second.Ant2)
	}
	for _, check := range []struct {
		name      string
		index     int
		conjugate bool
		wantIndex int
	}{
		{"XX", second.XXIndex, second.XXConjugate, 80},
		{"XY", second.XYIndex, second.XYConjugate, 168},
		{"YX", second.YXIndex, second.YXConjugate, 96},
		{"YY", second.YYIndex, second.YYConjugate, 184},
	} {
		if check.index != check.wantIndex || check.conjugate {
			t.Errorf("Expected %s at index %d unconjugated, got index %d conjugate %v",
				check.name, check.wantIndex, check.index, check.conjugate)
		}
	}

	last := table[len(table)-1]
	if last.Ant1 != 127 || last.Ant2 != 127 || last.Baseline != 8255 {
		t.Errorf("Expected final entry to be baseline 8255 (127, 127), got baseline %d (%d, %d)",
			last.Baseline, last.Ant1, last.Ant2)
	}
}

func TestGenerateConversionTableIndexBounds(t *testing.T) {
	// Shuffle the input order deterministically; indices must stay
	// within one fine channel's worth of floats whatever the cabling.
	order := make([]int, legacyInputs)
	for i := range order {
		order[i] = (i*97 + 31) % legacyInputs
	}
	table := GenerateConversionTable(order)

	const floatsPerFineChan = 8256 * floatsPerBaselineFineChan
	for _, b := range table {
		for _, idx := range []int{b.XXIndex, b.XYIndex, b.YXIndex, b.YYIndex} {
			if idx%2 != 0 {
				t.Fatalf("Baseline %d has odd float index %d", b.Baseline, idx)
			}
			if idx < 0 || idx+1 >= floatsPerFineChan {
				t.Fatalf("Baseline %d has out of range index %d", b.Baseline, idx)
			}
		}
	}
}

func TestGenerateConversionTableWrongInputCount(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Expected panic for wrong rf input count")
		}
	}()
	GenerateConversionTable(make([]int, 255))
}

// fillLegacyHDU fills a buffer with small deterministic integers so
// float64 sums over it are exact.
func fillLegacyHDU(numFineChans int) []float32 {
	const floatsPerFineChan = 8256 * floatsPerBaselineFineChan
	data := make([]float32, numFineChans*floatsPerFineChan)
	for i := range data {
		data[i] = float32(i%1009 - 504)
	}
	return data
}

func asFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func TestLegacyConvertersAgree(t *testing.T) {
	const numFineChans = 2
	table := GenerateConversionTable(identityOrder())
	in := fillLegacyHDU(numFineChans)

	byBaseline := make([]float32, len(in))
	byFrequency := make([]float32, len(in))
	LegacyToBaselineOrder(table, in, byBaseline, numFineChans)
	LegacyToFrequencyOrder(table, in, byFrequency, numFineChans)

	// Same per-baseline values, different striding.
	const floatsPerFineChan = 8256 * floatsPerBaselineFineChan
	floatsPerBaseline := floatsPerBaselineFineChan * numFineChans
	for fineChan := 0; fineChan < numFineChans; fineChan++ {
		for bl := 0; bl < 8256; bl++ {
			blOff := bl*floatsPerBaseline + fineChan*floatsPerBaselineFineChan
			fqOff := fineChan*floatsPerFineChan + bl*floatsPerBaselineFineChan
			for p := 0; p < floatsPerBaselineFineChan; p++ {
				if byBaseline[blOff+p] != byFrequency[fqOff+p] {
					t.Fatalf("Baseline %d fine chan %d float %d: baseline order %v, frequency order %v",
						bl, fineChan, p, byBaseline[blOff+p], byFrequency[fqOff+p])
				}
			}
		}
	}

	if sumBL, sumFQ := floats.Sum(asFloat64(byBaseline)), floats.Sum(asFloat64(byFrequency)); sumBL != sumFQ {
		t.Errorf("Expected equal sums from both orderings, got %v and %v", sumBL, sumFQ)
	}
}

func TestLegacyToBaselineOrderConjugation(t *testing.T) {
	const numFineChans = 1
	table := GenerateConversionTable(identityOrder())
	in := fillLegacyHDU(numFineChans)

	out := make([]float32, len(in))
	LegacyToBaselineOrder(table, in, out, numFineChans)

	// Entry 0's XX product is stored directly, so its real part is
	// copied and its imaginary part lands negated.
	b := table[0]
	if out[0] != in[b.XXIndex] {
		t.Errorf("Expected XX real %v, got %v", in[b.XXIndex], out[0])
	}
	if out[1] != -in[b.XXIndex+1] {
		t.Errorf("Expected XX imag %v, got %v", -in[b.XXIndex+1], out[1])
	}
	// Its YX product is the conjugate of the stored XY value, so the
	// two sign flips cancel and the imaginary part is copied as is.
	if out[4] != in[b.YXIndex] {
		t.Errorf("Expected YX real %v, got %v", in[b.YXIndex], out[4])
	}
	if out[5] != in[b.YXIndex+1] {
		t.Errorf("Expected YX imag %v, got %v", in[b.YXIndex+1], out[5])
	}
}

func TestLegacyToBaselineOrderShortBuffer(t *testing.T) {
	table := GenerateConversionTable(identityOrder())
	defer func() {
		if recover() == nil {
			t.Fatal("Expected panic for undersized input buffer")
		}
	}()
	LegacyToBaselineOrder(table, make([]float32, 16), make([]float32, 8256*8), 1)
}

func TestMWAXToFrequencyOrder(t *testing.T) {
	const (
		numBaselines = 3
		numFineChans = 4
		numPols      = 4
	)
	floatsPerBaselineFine := numPols * 2
	in := make([]float32, numBaselines*numFineChans*floatsPerBaselineFine)
	for i := range in {
		in[i] = float32(i)
	}

	out := make([]float32, len(in))
	MWAXToFrequencyOrder(in, out, numBaselines, numFineChans, numPols)

	// Baseline 2, fine channel 1 must land at [fine channel 1][baseline 2].
	src := 2*numFineChans*floatsPerBaselineFine + 1*floatsPerBaselineFine
	dst := 1*numBaselines*floatsPerBaselineFine + 2*floatsPerBaselineFine
	for p := 0; p < floatsPerBaselineFine; p++ {
		if out[dst+p] != in[src+p] {
			t.Fatalf("Float %d of baseline 2 fine chan 1: expected %v, got %v", p, in[src+p], out[dst+p])
		}
	}

	// Swapping the axis counts applies the inverse transpose.
	back := make([]float32, len(in))
	MWAXToFrequencyOrder(out, back, numFineChans, numBaselines, numPols)
	for i := range in {
		if back[i] != in[i] {
			t.Fatalf("Round trip mismatch at float %d: expected %v, got %v", i, in[i], back[i])
		}
	}
}

func TestMWAXToFrequencyOrderShortBuffer(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Expected panic for undersized output buffer")
		}
	}()
	MWAXToFrequencyOrder(make([]float32, 64), make([]float32, 8), 2, 4, 4)
}
