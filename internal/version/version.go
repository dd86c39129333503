package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Build metadata, set with -ldflags "-X github.com/oshokin/extension-host/internal/version.Version=1.2.3".
// Empty values fall back to what the go tool stamped into the binary.
var (
	Version   string
	Commit    string
	BuildTime string
)

const (
	// develVersion is reported by builds without any version information.
	develVersion = "devel"
	// revisionLength keeps VCS revisions short in the version line.
	revisionLength = 12
)

// Short returns the release version without a leading "v".
func Short() string {
	if Version != "" {
		return strings.TrimPrefix(Version, "v")
	}

	// go install records the module version.
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return strings.TrimPrefix(info.Main.Version, "v")
	}

	return develVersion
}

// Full returns the version line printed by `extension-host version`.
func Full() string {
	built := BuildTime
	if built == "" {
		built = "unknown"
	}

	return fmt.Sprintf("%s (revision %s, built %s, %s %s/%s)",
		Short(), revision(), built, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// revision returns Commit or the VCS revision stamped by the go tool.
func revision() string {
	if Commit != "" {
		return Commit
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "none"
	}

	rev, dirty := "none", false

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			rev = setting.Value[:min(len(setting.Value), revisionLength)]
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	if dirty {
		rev += "-dirty"
	}

	return rev
}
