// Package version reports build information, set via ldflags or read
// from the embedded build info.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the application version, set via ldflags. Binaries built
	// with "go install module@version" fall back to the module version.
	Version = moduleVersion()
	// Revision is the git commit the binary was built from, with a "-dirty"
	// suffix for modified work trees.
	Revision = vcsRevision()

	// GoVersion is the Go version used to build.
	GoVersion = runtime.Version()
	// GoOS is the operating system target.
	GoOS = runtime.GOOS
	// GoArch is the architecture target.
	GoArch = runtime.GOARCH
)

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("%s (revision %s, %s %s/%s)", Version, Revision, GoVersion, GoOS, GoArch)
}

func moduleVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "devel"
	}

	return info.Main.Version
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	rev, ok := settings["vcs.revision"]
	if !ok {
		return "unknown"
	}

	if settings["vcs.modified"] == "true" {
		rev += "-dirty"
	}

	return rev
}
