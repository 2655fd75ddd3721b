// Package version provides build-time version information for todo-e2e.
// These variables are set at build time via -ldflags, e.g.
// -X github.com/gotodo/todo-e2e/internal/version.Version=v0.3.0
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables set via ldflags
var (
	// Version is the semantic version or branch name if not a tagged build
	Version = "dev"

	// Commit is the short git commit SHA
	Commit = "none"

	// BuildDate is the build timestamp
	BuildDate = "unknown"
)

// Info is the version document included in reports and /healthz.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// GetInfo returns the current version info.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

// String returns "v0.3.0 (abc1234)".
func String() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}

// Full returns the version with build details, as shown by --version.
func Full() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, %s)", Version, Commit, BuildDate, runtime.Version())
}

// UserAgent identifies the harness in HTTP requests to the backend.
func UserAgent() string {
	return "todo-e2e/" + Version
}
