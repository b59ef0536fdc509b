package version

import (
	"runtime/debug"
	"testing"
)

func withVars(t *testing.T, v, c, b string) {
	t.Helper()
	oldV, oldC, oldB := Version, Commit, BuildTime
	Version, Commit, BuildTime = v, c, b
	t.Cleanup(func() { Version, Commit, BuildTime = oldV, oldC, oldB })
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		name                   string
		version, commit, built string
		want                   string
	}{
		{"development", "0.0.0-dev", "", "", "0.0.0-dev (development)"},
		{"empty version", "", "", "", "0.0.0-dev (development)"},
		{"commit only", "1.2.0", "abc1234", "", "1.2.0 (commit: abc1234)"},
		{"build time only", "1.2.0", "", "2025-01-02T03:04:05Z", "1.2.0 (built at: 2025-01-02T03:04:05Z)"},
		{"full", "1.2.0", "abc1234", "2025-01-02T03:04:05Z", "1.2.0 (commit: abc1234, built at: 2025-01-02T03:04:05Z)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withVars(t, tt.version, tt.commit, tt.built)
			if got := FormatVersion(); got != tt.want {
				t.Errorf("FormatVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPopulateFromBuildInfo(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2025-03-04T05:06:07+01:00"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	read := func() (*debug.BuildInfo, bool) { return info, true }

	t.Run("fills unset values", func(t *testing.T) {
		withVars(t, devVersion, "", "")
		populateFromBuildInfo(read)
		if Version != "0.4.1-dirty" {
			t.Errorf("Version = %q", Version)
		}
		if Commit != "0123456" {
			t.Errorf("Commit = %q", Commit)
		}
		if BuildTime != "2025-03-04T04:06:07Z" {
			t.Errorf("BuildTime = %q", BuildTime)
		}
	})

	t.Run("ldflags win", func(t *testing.T) {
		withVars(t, "2.0.0", "fedcba9", "")
		populateFromBuildInfo(read)
		if Version != "2.0.0" || Commit != "fedcba9" || BuildTime != "" {
			t.Errorf("got %q %q %q", Version, Commit, BuildTime)
		}
	})

	t.Run("devel main module", func(t *testing.T) {
		withVars(t, devVersion, "", "")
		populateFromBuildInfo(func() (*debug.BuildInfo, bool) {
			return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
		})
		if Version != devVersion {
			t.Errorf("Version = %q", Version)
		}
	})

	t.Run("no build info", func(t *testing.T) {
		withVars(t, devVersion, "", "")
		populateFromBuildInfo(func() (*debug.BuildInfo, bool) { return nil, false })
		if Version != devVersion || Commit != "" {
			t.Errorf("got %q %q", Version, Commit)
		}
	})
}
