// Package version reports the build of the tunebox binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version can be set at build time, e.g.
// go build -ldflags "-X github.com/wizzlekids/tunebox/version.Version=$(git describe --dirty)"
var Version string

// Build describes the binary.
type Build struct {
	Version   string // Version, or the short VCS revision when unset
	Revision  string
	Modified  bool
	GoVersion string
}

// Get reads the build information embedded by the Go toolchain.
func Get() Build {
	b := Build{Version: Version, GoVersion: runtime.Version()}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				b.Revision = setting.Value
			case "vcs.modified":
				b.Modified = setting.Value == "true"
			}
		}
	}
	if b.Version == "" && b.Revision != "" {
		b.Version = b.Revision[:min(7, len(b.Revision))]
		if b.Modified {
			b.Version += "-dirty"
		}
	}
	if b.Version == "" {
		b.Version = "devel"
	}
	return b
}

func (b Build) String() string {
	return fmt.Sprintf("tunebox %s (%s)", b.Version, b.GoVersion)
}
