package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Defaults, overridden by ldflags or build info.
var (
	Version   = "0.0.0-dev"
	Commit    = ""
	BuildTime = ""
)

// populateFromBuildInfo fills Version/Commit/BuildTime from the VCS
// metadata the Go toolchain embeds, unless ldflags already set them.
func populateFromBuildInfo() {
	if Version != "" && Version != "0.0.0-dev" {
		return
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return
	}

	get := func(key string) (string, bool) {
		for _, s := range bi.Settings {
			if s.Key == key {
				return s.Value, true
			}
		}
		return "", false
	}

	if Commit == "" {
		if rev, ok := get("vcs.revision"); ok && len(rev) >= 7 {
			Commit = rev[:7]
		}
	}
	if BuildTime == "" {
		if ts, ok := get("vcs.time"); ok {
			BuildTime = ts
		}
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		Version = strings.TrimPrefix(bi.Main.Version, "v")
	}
}

// FormatVersion returns the version string with commit and build time
// when available.
func FormatVersion() string {
	populateFromBuildInfo()

	parts := []string{Version}
	if Commit != "" {
		parts = append(parts, fmt.Sprintf("commit %s", Commit))
	}
	if BuildTime != "" {
		parts = append(parts, fmt.Sprintf("built %s", BuildTime))
	}
	return strings.Join(parts, ", ")
}
