// SPDX-License-Identifier: MIT
//
// Package build carries build metadata injected at compile time via
// -ldflags, e.g.:
//
//	go build -ldflags "-X spectra/pkg/build.buildName=spectra -X spectra/pkg/build.buildVersion=0.1.0"
//
// Development builds without ldflags fall back to "dev" defaults.
package build

type Info struct {
	Name    string // Application name
	Time    string // Build timestamp (RFC3339)
	Commit  string // Git commit hash
	Version string // Semantic version
}

// Package-level variables populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = &Info{
		Name:    "spectra",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies any ldflags-provided values over the development
// defaults. Missing flags are not an error; the defaults stand.
func Initialize() {
	if buildName != "" {
		buildInfo.Name = buildName
	}
	if buildTime != "" {
		buildInfo.Time = buildTime
	}
	if buildCommit != "" {
		buildInfo.Commit = buildCommit
	}
	if buildVersion != "" {
		buildInfo.Version = buildVersion
	}
}

// GetInfo returns the current build information. Call Initialize first.
func GetInfo() *Info {
	return buildInfo
}
