// Package config provides configuration structures and defaults for mwabox tools
package config

// Config represents the complete application configuration
type Config struct {
	Observation ObservationConfig `yaml:"observation"` // Observation input files
	Logging     LoggingConfig     `yaml:"logging"`     // Logging configuration
}

// ObservationConfig identifies the files making up one observation
type ObservationConfig struct {
	Metafits string   `yaml:"metafits"` // Path to the observation metafits file
	Gpubox   []string `yaml:"gpubox"`   // Gpubox file paths or glob patterns
}

// LoggingConfig contains logging configuration parameters
type LoggingConfig struct {
	Level string `yaml:"level"` // Log level (debug, info, warn, error)
}

// DefaultConfig returns a configuration with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Observation: ObservationConfig{
			Metafits: "",  // No default; every observation has its own metafits
			Gpubox:   nil, // Metafits-only inspection when empty
		},
		Logging: LoggingConfig{
			Level: "info", // Info level logging
		},
	}
}
