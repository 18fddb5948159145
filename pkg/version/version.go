// Package version carries build information injected with -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

// Build information. Overridden at link time, e.g.
// -X github.com/Sumatoshi-tech/timemachine/pkg/version.Version=v1.0.0.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// InitBinaryVersion fills Version and Commit from the embedded module build
// info when they were not set at link time.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	if Commit != "none" {
		return
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			Commit = setting.Value
		}
	}
}

// String renders the build information on one line.
func String() string {
	return fmt.Sprintf("timemachine %s (commit: %s, built: %s)", Version, Commit, Date)
}
