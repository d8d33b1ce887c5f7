// Mwabox Dump - utility to display visibilities from MWA gpubox files
// This program reads one baseline of one scan through the correlator context
// and prints the selected fine channels as CSV rows.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"mwabox"
	"mwabox/internal/version"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Command line flag variables
var (
	metafitsPath string // Path to the observation metafits file
	timestepIdx  int    // Timestep index to dump
	coarseIdx    int    // Coarse channel index to dump
	baselineIdx  int    // Baseline index to dump
	fineChan1    int    // First fine channel of the dumped range
	fineChan2    int    // Last fine channel of the dumped range (-1 = last)
	dumpWeights  bool   // Dump the baseline's weights instead of visibilities
	outputFile   string // Output CSV path (default: stdout)
	verbose      bool   // Enable verbose logging
	showVersion  bool   // Show version information
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mwabox-dump [gpubox files...]",
	Short: "Display visibilities from MWA gpubox files",
	Long: `Mwabox Dump reads one baseline of one scan through the correlator context
and prints the selected fine channels as CSV, one row per fine channel
with real and imaginary columns for each polarisation product.

Legacy observations are reordered and conjugated into the canonical
baseline layout before printing, so the same selection flags address
the same products for every correlator generation.

Example usage:
  mwabox-dump -m 1101503312.metafits -t 0 -c 0 -b 1 1101503312_*_gpubox*.fits
  mwabox-dump -m 1101503312.metafits -b 128 --fine-chan2 31 -o bl128.csv *.fits
  mwabox-dump -m 1101503312.metafits --weights -b 0 *.fits`,
	Run: func(cmd *cobra.Command, args []string) {
		// Handle version flag
		if showVersion {
			fmt.Println(version.GetVersionInfo("Mwabox Dump"))
			return
		}

		// Require data files if not showing version
		if len(args) == 0 {
			fmt.Fprintf(os.Stderr, "Error: at least one gpubox file required\n")
			cmd.Usage()
			os.Exit(1)
		}

		if err := dumpSelection(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
	rootCmd.Flags().StringVarP(&metafitsPath, "metafits", "m", "", "path to the observation metafits file")
	rootCmd.Flags().IntVarP(&timestepIdx, "timestep", "t", 0, "timestep index to dump")
	rootCmd.Flags().IntVarP(&coarseIdx, "coarse-chan", "c", 0, "coarse channel index to dump")
	rootCmd.Flags().IntVarP(&baselineIdx, "baseline", "b", 0, "baseline index to dump")
	rootCmd.Flags().IntVar(&fineChan1, "fine-chan1", 0, "first fine channel of the dumped range")
	rootCmd.Flags().IntVar(&fineChan2, "fine-chan2", -1, "last fine channel of the dumped range (-1 = last)")
	rootCmd.Flags().BoolVarP(&dumpWeights, "weights", "w", false, "dump the baseline's weights instead of visibilities")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output CSV file (default: stdout)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// dumpSelection builds the context, reads the selected scan and prints
// the requested rows
func dumpSelection(gpuboxFiles []string) error {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
	if metafitsPath == "" {
		return fmt.Errorf("no metafits file specified (use --metafits)")
	}

	ctx, err := mwabox.NewCorrelatorContext(metafitsPath, gpuboxFiles)
	if err != nil {
		return err
	}

	m := ctx.Metafits
	if baselineIdx < 0 || baselineIdx >= m.NumBaselines {
		return fmt.Errorf("baseline index %d out of range 0..%d", baselineIdx, m.NumBaselines-1)
	}
	last := fineChan2
	if last < 0 {
		last = m.NumFineChansPerCoarse - 1
	}
	if fineChan1 < 0 || last >= m.NumFineChansPerCoarse || fineChan1 > last {
		return fmt.Errorf("fine channel range %d..%d invalid for %d fine channels per coarse",
			fineChan1, last, m.NumFineChansPerCoarse)
	}

	// Read before printing anything so index and no-data errors come out
	// on their own rather than under a half-printed header
	var buf []float32
	if dumpWeights {
		buf, err = ctx.ReadWeightsByBaseline(timestepIdx, coarseIdx)
	} else {
		buf, err = ctx.ReadByBaseline(timestepIdx, coarseIdx)
	}
	if err != nil {
		return err
	}

	displaySelection(ctx, fineChan1, last)

	out := io.Writer(os.Stdout)
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var rows int
	if dumpWeights {
		rows = writeWeightRows(out, m, buf)
	} else {
		rows = writeVisibilityRows(out, m, buf, fineChan1, last)
	}

	if outputFile != "" {
		fmt.Printf("📄 Wrote %d rows to %s\n", rows, outputFile)
	}
	return nil
}

// displaySelection shows what is about to be dumped
func displaySelection(ctx *mwabox.CorrelatorContext, first, last int) {
	m := ctx.Metafits
	ts := ctx.Timesteps[timestepIdx]
	cc := ctx.CoarseChans[coarseIdx]
	bl := m.Baselines[baselineIdx]

	fmt.Printf("MWABOX VISIBILITY DUMP %s\n\n", version.GetFullVersion())

	fmt.Printf("📊 Selection:\n")
	fmt.Printf("Observation: %d (%s)\n", m.ObsID, m.Mode)
	fmt.Printf("Correlator: %s\n", ctx.Version)
	fmt.Printf("Timestep: %d (UNIX %.3f, GPS %.3f)\n",
		timestepIdx, float64(ts.UnixTimeMs)/1e3, float64(ts.GPSTimeMs)/1e3)
	fmt.Printf("Coarse channel: %d (receiver %d, gpubox %02d, centre %.3f MHz)\n",
		coarseIdx, cc.RecChanNumber, cc.GpuboxNumber, float64(cc.ChanCentreHz)/1e6)
	fmt.Printf("Baseline: %d (%s x %s)\n", baselineIdx,
		m.Antennas[bl.Ant1].TileName, m.Antennas[bl.Ant2].TileName)
	if dumpWeights {
		fmt.Printf("Dumping: weights\n\n")
	} else {
		fmt.Printf("Fine channels: %d..%d of %d\n\n", first, last, m.NumFineChansPerCoarse)
	}
}

// writeVisibilityRows prints one CSV row per fine channel of the
// selected baseline, with re and im columns per polarisation product
func writeVisibilityRows(out io.Writer, m *mwabox.Metafits, buf []float32, first, last int) int {
	var header strings.Builder
	header.WriteString("fine_chan")
	for _, p := range m.VisibilityPols {
		pol := strings.ToLower(p.Polarisation)
		fmt.Fprintf(&header, ",%s_r,%s_i", pol, pol)
	}
	fmt.Fprintln(out, header.String())

	floatsPerFine := m.NumVisibilityPols * 2
	base := baselineIdx * m.NumFineChansPerCoarse * floatsPerFine

	rows := 0
	for f := first; f <= last; f++ {
		var row strings.Builder
		fmt.Fprintf(&row, "%d", f)
		start := base + f*floatsPerFine
		for _, v := range buf[start : start+floatsPerFine] {
			fmt.Fprintf(&row, ",%g", v)
		}
		fmt.Fprintln(out, row.String())
		rows++
	}
	return rows
}

// writeWeightRows prints the selected baseline's weight for each
// polarisation product
func writeWeightRows(out io.Writer, m *mwabox.Metafits, buf []float32) int {
	fmt.Fprintln(out, "pol,weight")
	base := baselineIdx * m.NumVisibilityPols
	for i, p := range m.VisibilityPols {
		fmt.Fprintf(out, "%s,%g\n", strings.ToLower(p.Polarisation), buf[base+i])
	}
	return m.NumVisibilityPols
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
