// Package version provides version information for mwabox tools
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables that can be set via ldflags
var (
	// Version is the main version number that is being run at the moment
	Version = "0.1.0"

	// GitCommit is the git sha1 that was compiled. This will be filled in by the compiler
	GitCommit = "unknown"

	// BuildDate is the date the binary was built
	BuildDate = "unknown"
)

// GetFullVersion returns a detailed version string
func GetFullVersion() string {
	if GitCommit != "unknown" && len(GitCommit) > 7 {
		return fmt.Sprintf("%s-%s", Version, GitCommit[:7])
	}
	return Version
}

// GetVersionInfo returns formatted version information
func GetVersionInfo(appName string) string {
	result := fmt.Sprintf("%s version %s", appName, Version)

	if GitCommit != "unknown" {
		if len(GitCommit) > 7 {
			result += fmt.Sprintf(" (commit %s)", GitCommit[:7])
		} else {
			result += fmt.Sprintf(" (commit %s)", GitCommit)
		}
	}

	if BuildDate != "unknown" {
		result += fmt.Sprintf("\nBuilt: %s", BuildDate)
	}

	result += fmt.Sprintf("\nGo: %s", runtime.Version())
	result += fmt.Sprintf("\nPlatform: %s/%s", runtime.GOOS, runtime.GOARCH)

	return result
}
