// Package version provides application version information.
// The values can be set at build time using ldflags:
//
//	go build -ldflags "-X github.com/ramonehamilton/mtg-archetypes/internal/version.Version=v1.2.3"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"

	// Commit is the git revision the binary was built from.
	Commit = ""
)

// GetVersion returns the current application version.
func GetVersion() string {
	return Version
}

// GetCommit returns the build revision, falling back to the VCS stamp the
// Go toolchain embeds.
func GetCommit() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}
	return "unknown"
}

// String formats the version for display.
func String() string {
	return fmt.Sprintf("archetyper %s (commit %s, %s %s/%s)", GetVersion(), GetCommit(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
