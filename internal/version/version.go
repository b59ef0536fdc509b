// Package version reports the build version of the riskdash binaries.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Set with -ldflags "-X riskdash/internal/version.Version=..." at build time.
var (
	Version   = "0.0.0-dev"
	Commit    = ""
	BuildTime = ""
)

const devVersion = "0.0.0-dev"

func init() {
	populateFromBuildInfo(debug.ReadBuildInfo)
}

// populateFromBuildInfo fills unset values from the VCS stamp Go embeds in
// module builds. Values set by ldflags win.
func populateFromBuildInfo(read func() (*debug.BuildInfo, bool)) {
	if Version != "" && Version != devVersion {
		return
	}
	bi, ok := read()
	if !ok || bi == nil {
		return
	}

	settings := make(map[string]string, len(bi.Settings))
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}

	if Commit == "" {
		if rev := settings["vcs.revision"]; len(rev) >= 7 {
			Commit = rev[:7]
		}
	}
	if BuildTime == "" {
		if ts, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
			BuildTime = ts.UTC().Format("2006-01-02T15:04:05Z")
		}
	}

	v := strings.TrimPrefix(bi.Main.Version, "v")
	if v == "" || v == "(devel)" {
		return
	}
	Version = v
	if settings["vcs.modified"] == "true" {
		Version += "-dirty"
	}
}

// FormatVersion renders the version with commit and build time when known,
// e.g. "1.2.3 (commit: abc1234, built at: 2025-10-23T10:20:30Z)".
func FormatVersion() string {
	ver := Version
	if ver == "" {
		ver = devVersion
	}
	switch {
	case Commit == "" && BuildTime == "":
		return ver + " (development)"
	case Commit == "":
		return fmt.Sprintf("%s (built at: %s)", ver, BuildTime)
	case BuildTime == "":
		return fmt.Sprintf("%s (commit: %s)", ver, Commit)
	default:
		return fmt.Sprintf("%s (commit: %s, built at: %s)", ver, Commit, BuildTime)
	}
}
