// SPDX-License-Identifier: MIT
//
// Package build provides functionality to manage and retrieve build information
// for a Go application. It allows embedding metadata such as the application
// name, build timestamp, Git commit hash, and semantic version into the binary
// at compile time using linker flags. This information can be useful for debugging,
// logging, and displaying version information to users.
package build

import "fmt"

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
	release     bool
}

// DefaultName is used when no name was injected.
const DefaultName = "equalizer"

const description = "Three-band parametric equalizer with a live spectrum analyzer"

// Package-level variables for build information. These are populated by -ldflags
// during compilation. Default values of "unknown" are used during development.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        DefaultName,
		Description: description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// Initialize validates and copies build information from ldflags variables
// into the buildFlags struct. This must be called early in program startup
// to ensure all build information is properly set. Returns an error if any
// required build flag is missing.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion
	buildFlags.release = true

	return nil
}

// IsRelease reports whether Initialize accepted injected build flags.
func (f *ldFlags) IsRelease() bool { return f.release }

// String formats the flags for --version output.
func (f *ldFlags) String() string {
	if !f.release {
		return fmt.Sprintf("%s %s", f.Name, f.Version)
	}
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}

// GetBuildFlags returns the current build information. Initialize()
// must be called before this function to ensure the build information
// is valid. This function is safe to call after initialization.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
