// Package version exposes build metadata injected via -ldflags.
package version

import "fmt"

// Build metadata. Overridden at link time:
//
//	go build -ldflags "-X github.com/rshade/ecolife/pkg/version.version=v1.2.3"
//
//nolint:gochecknoglobals // ldflags injection targets must be package variables
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// GetVersion returns the semantic version of the binary.
func GetVersion() string {
	return version
}

// GetGitCommit returns the commit the binary was built from.
func GetGitCommit() string {
	return gitCommit
}

// GetBuildDate returns the build timestamp.
func GetBuildDate() string {
	return buildDate
}

// String returns a one-line description suitable for `--version` output.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", version, gitCommit, buildDate)
}
