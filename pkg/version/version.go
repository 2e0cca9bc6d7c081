// Package version reports the build identity of the carbonstats binary.
package version

import (
	"fmt"
	"runtime/debug"
)

const unknown = "unknown"

// Build identity, overridden at link time with
// -ldflags "-X github.com/Sumatoshi-tech/carbonstats/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills unset fields from the module build info, so
// binaries built with go install still report where they came from.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}
}

// String formats the build identity for the version command.
func String() string {
	return fmt.Sprintf("carbonstats %s (commit: %s, built: %s)", Version, Commit, Date)
}
