// Mwabox Inspect - observation summary tool for MWA correlator data
// This program loads an observation's metafits and gpubox files and prints
// the derived context: scheduling, frequency setup, timesteps, coarse
// channels and the common visibility windows.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"mwabox"
	"mwabox/internal/config"
	"mwabox/internal/version"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Command line flag variables
var (
	cfgFile      string   // Configuration file path
	metafitsPath string   // Path to the observation metafits file
	gpuboxGlobs  []string // Gpubox file paths or glob patterns
	metafitsOnly bool     // Print the metafits block without loading gpubox files
	verbose      bool     // Enable verbose logging
	showVersion  bool     // Show version information
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mwabox-inspect",
	Short: "Summarise an MWA correlator observation",
	Long: `Mwabox Inspect loads an MWA observation's metafits and gpubox files and
prints the derived observation context: scheduling, frequency setup,
timesteps, coarse channels and the common visibility windows.

Example usage:
  mwabox-inspect -m 1101503312.metafits -g '1101503312_*_gpubox*.fits'
  mwabox-inspect -m 1101503312.metafits --metafits-only`,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("Mwabox Inspect"))
			return
		}

		if err := runInspect(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// init initializes the CLI flags and configuration
func init() {
	// Initialize configuration when cobra starts
	cobra.OnInitialize(initConfig)

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "./mwabox.yaml", "config file (default is ./mwabox.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Command-specific flags
	rootCmd.Flags().StringVarP(&metafitsPath, "metafits", "m", "", "path to the observation metafits file")
	rootCmd.Flags().StringSliceVarP(&gpuboxGlobs, "gpubox", "g", nil, "gpubox file paths or glob patterns (repeatable)")
	rootCmd.Flags().BoolVar(&metafitsOnly, "metafits-only", false, "print the metafits block without loading gpubox files")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")

	// Bind command line flags to viper configuration keys
	viper.BindPFlag("observation.metafits", rootCmd.Flags().Lookup("metafits"))
	viper.BindPFlag("observation.gpubox", rootCmd.Flags().Lookup("gpubox"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for mwabox.yaml in current directory
		viper.SetConfigName("mwabox")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	// Read in environment variables that match
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// runInspect is the main application logic
func runInspect() error {
	// Load default configuration
	cfg := config.DefaultConfig()

	// Override with values from config file and command line flags
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --verbose wins over the configured log level
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if level, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	}

	if cfg.Observation.Metafits == "" {
		return fmt.Errorf("no metafits file specified: set observation.metafits in the config file or use --metafits")
	}

	// A metafits alone is a valid observation to inspect
	if metafitsOnly || len(cfg.Observation.Gpubox) == 0 {
		m, err := mwabox.NewMetafits(cfg.Observation.Metafits)
		if err != nil {
			return err
		}
		fmt.Println(m)
		return nil
	}

	gpuboxFiles, err := expandGpuboxPatterns(cfg.Observation.Gpubox)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Expanded %d gpubox pattern(s) to %d file(s)\n",
			len(cfg.Observation.Gpubox), len(gpuboxFiles))
	}

	ctx, err := mwabox.NewCorrelatorContext(cfg.Observation.Metafits, gpuboxFiles)
	if err != nil {
		return err
	}

	fmt.Println(ctx)
	return nil
}

// expandGpuboxPatterns resolves glob patterns into a sorted file list.
// A pattern with no matches is kept verbatim so a missing file surfaces
// as an open error rather than silently shrinking the observation.
func expandGpuboxPatterns(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid gpubox pattern %q: %w", pattern, err)
		}
		if matches == nil {
			files = append(files, pattern)
			continue
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
