// Package version carries the build metadata stamped into NetSeek binaries.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/netseek/netseek/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info renders a single human-readable line for --version output, e.g.
// "netseek 0.3.0 (abc1234, 2026-08-28) go1.25 linux/amd64".
func Info() string {
	return fmt.Sprintf("netseek %s (%s, %s) %s %s/%s",
		Version, GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns only the version string, for headers and log fields.
func Short() string {
	return Version
}

// Map returns the build metadata keyed for JSON responses.
func Map() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
		"platform":   runtime.GOOS + "/" + runtime.GOARCH,
	}
}
