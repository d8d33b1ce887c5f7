// Mwabox Sum - visibility accumulation tool for MWA observations
// This program reads every provided scan of an observation through the
// correlator context and reports per coarse channel and grand totals,
// optionally cross-checked against a direct walk of the data HDUs.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mwabox"
	"mwabox/gpubox"
	"mwabox/internal/fits"
	"mwabox/internal/version"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

// Command line flag variables
var (
	metafitsPath string // Path to the observation metafits file
	byFrequency  bool   // Sum reads in frequency order instead of baseline order
	direct       bool   // Also sum the data HDUs directly for cross-checking
	verbose      bool   // Enable verbose logging
	showVersion  bool   // Show version information
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mwabox-sum [gpubox files...]",
	Short: "Sum every visibility of an MWA observation",
	Long: `Mwabox Sum reads every provided (timestep, coarse channel) scan of an
observation through the correlator context and accumulates the float
totals per coarse channel plus a grand total.

With --direct the data HDUs are also summed straight off the files,
bypassing the context, as a cross-check of the read path. The legacy
conversion negates imaginary parts, so the two totals agree exactly
only for MWAX observations.

Example usage:
  mwabox-sum -m 1101503312.metafits '1101503312_*_gpubox*.fits'
  mwabox-sum -m 1244973688.metafits --by-frequency --direct 1244973688_*.fits`,
	Run: func(cmd *cobra.Command, args []string) {
		// Handle version flag
		if showVersion {
			fmt.Println(version.GetVersionInfo("Mwabox Sum"))
			return
		}

		if metafitsPath == "" {
			fmt.Fprintf(os.Stderr, "Error: no metafits file specified (use --metafits)\n")
			cmd.Usage()
			os.Exit(1)
		}
		if len(args) == 0 {
			fmt.Fprintf(os.Stderr, "Error: at least one gpubox file or pattern required\n")
			cmd.Usage()
			os.Exit(1)
		}

		if err := runSum(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
	rootCmd.Flags().StringVarP(&metafitsPath, "metafits", "m", "", "path to the observation metafits file")
	rootCmd.Flags().BoolVar(&byFrequency, "by-frequency", false, "sum reads in frequency order instead of baseline order")
	rootCmd.Flags().BoolVar(&direct, "direct", false, "also sum the data HDUs directly for cross-checking")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// runSum is the main application logic
func runSum(args []string) error {
	startTime := time.Now()

	// Display banner
	fmt.Printf("╔══════════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║                MWABOX VISIBILITY SUM %s                ║\n", fmt.Sprintf("%-8s", version.GetFullVersion()))
	fmt.Printf("╚══════════════════════════════════════════════════════════════╝\n\n")

	if verbose {
		log.SetLevel(log.DebugLevel)
		fmt.Printf("🔧 Configuration:\n")
		fmt.Printf("   Metafits: %s\n", metafitsPath)
		fmt.Printf("   Ordering: %s\n", orderingName())
		fmt.Printf("   Direct HDU cross-check: %t\n\n", direct)
	}

	files, err := findGpuboxFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no gpubox files found: make sure patterns are quoted and files end in .fits")
	}

	fmt.Printf("📁 Found %d gpubox files:\n", len(files))
	for i, file := range files {
		fmt.Printf("   %d. %s\n", i+1, filepath.Base(file))
	}
	fmt.Println()

	ctx, err := mwabox.NewCorrelatorContext(metafitsPath, files)
	if err != nil {
		return fmt.Errorf("failed to build correlator context: %w", err)
	}

	fmt.Printf("⚙️  Summing %d timesteps x %d coarse channels in %s order...\n\n",
		len(ctx.ProvidedTimestepIndices), len(ctx.ProvidedCoarseChanIndices), orderingName())

	buf := make([]float32, ctx.TimestepCoarseChanFloats)
	scratch := make([]float64, ctx.TimestepCoarseChanFloats)
	chanSums := make([]float64, ctx.NumCoarseChans)
	chanScans := make([]int, ctx.NumCoarseChans)
	var summed, skipped int

	for _, t := range ctx.ProvidedTimestepIndices {
		for _, cc := range ctx.ProvidedCoarseChanIndices {
			var err error
			if byFrequency {
				err = ctx.ReadByFrequencyInto(t, cc, buf)
			} else {
				err = ctx.ReadByBaselineInto(t, cc, buf)
			}

			// A channel can drop out for part of the observation;
			// that is a gap to count, not a failure
			var noData *mwabox.NoDataError
			if errors.As(err, &noData) {
				skipped++
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to read timestep %d coarse channel %d: %w", t, cc, err)
			}

			chanSums[cc] += sumFloats(buf, scratch)
			chanScans[cc]++
			summed++
		}
	}

	displayChannelTotals(ctx, chanSums, chanScans)

	var directTotal float64
	var directHDUs int
	if direct {
		fmt.Printf("⚙️  Cross-checking against a direct HDU walk...\n\n")
		directTotal, directHDUs, err = sumDirect(files, ctx.Version)
		if err != nil {
			return fmt.Errorf("direct HDU walk failed: %w", err)
		}
	}

	displaySummary(ctx, floats.Sum(chanSums), summed, skipped, directTotal, directHDUs, time.Since(startTime))
	return nil
}

// findGpuboxFiles expands glob patterns and keeps only .fits files
func findGpuboxFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if matches == nil {
			matches = []string{pattern}
		}
		for _, match := range matches {
			if strings.HasSuffix(strings.ToLower(match), ".fits") {
				files = append(files, match)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// orderingName names the read ordering in use
func orderingName() string {
	if byFrequency {
		return "frequency"
	}
	return "baseline"
}

// sumFloats accumulates a visibility buffer at float64 precision
func sumFloats(buf []float32, scratch []float64) float64 {
	for i, v := range buf {
		scratch[i] = float64(v)
	}
	return floats.Sum(scratch[:len(buf)])
}

// sumDirect walks every data HDU of every file with no reordering.
// MWAX weights HDUs are skipped the same way the scan skips them
func sumDirect(files []string, ver gpubox.CorrelatorVersion) (float64, int, error) {
	step := 1
	if ver == gpubox.VersionMWAXv2 {
		step = 2
	}

	var total float64
	var hdus int
	for _, filename := range files {
		f, err := fits.Open(filename)
		if err != nil {
			return 0, 0, err
		}
		for i := 1; i < f.NumHDUs(); i += step {
			data, err := f.ImageFloat32(i)
			if err != nil {
				f.Close()
				return 0, 0, err
			}
			scratch := make([]float64, len(data))
			for j, v := range data {
				scratch[j] = float64(v)
			}
			total += floats.Sum(scratch)
			hdus++
		}
		f.Close()
	}
	return total, hdus, nil
}

// displayChannelTotals shows the per coarse channel sums
func displayChannelTotals(ctx *mwabox.CorrelatorContext, sums []float64, scans []int) {
	fmt.Printf("📊 Per Coarse Channel Totals:\n")
	fmt.Printf("┌───────┬─────────────┬────────┬──────────────────────┐\n")
	fmt.Printf("│ Index │ Receiver ch │ Scans  │ Sum                  │\n")
	fmt.Printf("├───────┼─────────────┼────────┼──────────────────────┤\n")
	for i, cc := range ctx.CoarseChans {
		fmt.Printf("│ %-5d │ %-11d │ %-6d │ %20.6f │\n", i, cc.RecChanNumber, scans[i], sums[i])
	}
	fmt.Printf("└───────┴─────────────┴────────┴──────────────────────┘\n\n")
}

// displaySummary shows the grand totals
func displaySummary(ctx *mwabox.CorrelatorContext, total float64, summed, skipped int, directTotal float64, directHDUs int, elapsed time.Duration) {
	fmt.Printf("✅ Visibility sum complete!\n\n")

	fmt.Printf("📊 Results Summary:\n")
	fmt.Printf("┌─────────────────────────┬─────────────────────────────────────────┐\n")
	fmt.Printf("│ Parameter               │ Value                                   │\n")
	fmt.Printf("├─────────────────────────┼─────────────────────────────────────────┤\n")
	fmt.Printf("│ Observation             │ %-39d │\n", ctx.Metafits.ObsID)
	fmt.Printf("│ Correlator              │ %-39s │\n", ctx.Version)
	fmt.Printf("│ Ordering                │ %-39s │\n", orderingName())
	fmt.Printf("│ Scans summed            │ %-39s │\n", fmt.Sprintf("%d (%d skipped)", summed, skipped))
	fmt.Printf("│ Floats per scan         │ %-39d │\n", ctx.TimestepCoarseChanFloats)
	fmt.Printf("│ Library total           │ %-39.6f │\n", total)
	if direct {
		fmt.Printf("│ Direct HDU total        │ %-39s │\n", fmt.Sprintf("%.6f (%d HDUs)", directTotal, directHDUs))
		fmt.Printf("│ Difference              │ %-39.6f │\n", total-directTotal)
	}
	fmt.Printf("│ Processing time         │ %-39s │\n", elapsed.Round(time.Millisecond))
	fmt.Printf("└─────────────────────────┴─────────────────────────────────────────┘\n")

	if direct && ctx.Version != gpubox.VersionMWAXv2 {
		fmt.Printf("\nNote: the legacy conversion negates imaginary parts, so a non-zero\n")
		fmt.Printf("difference against the direct total is expected for v1 observations.\n")
	}
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
