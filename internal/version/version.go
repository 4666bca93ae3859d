// Package version holds build-time version information for the keyguard
// binaries. Release builds inject the values with -ldflags:
//
// -X github.com/ferro-labs/keyguard/internal/version.Version=v0.1.0
// -X github.com/ferro-labs/keyguard/internal/version.Commit=abc1234
// -X github.com/ferro-labs/keyguard/internal/version.Date=2026-10-01T00:00:00Z
package version

import "fmt"

// Set at link time; local builds keep the dev values.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns a single-line human-readable version string, e.g.:
//
// v0.1.0 (commit abc1234, built 2026-10-01T00:00:00Z)
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}

// Short returns just the version tag.
func Short() string {
	return Version
}
