package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func TestCurrentPrefersBuildVersion(t *testing.T) {
	old := buildVersion
	buildVersion = "v1.2.3+dirty"
	t.Cleanup(func() { buildVersion = old })

	if got := Current(); got != "v1.2.3" {
		t.Fatalf("expected build version, got %q", got)
	}
}

func TestReadPseudoVersionFromVCS(t *testing.T) {
	ts := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	old := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Path: "example.com/fork", Version: "(devel)"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "1234567890abcdef"},
				{Key: "vcs.time", Value: ts.Format(time.RFC3339)},
				{Key: "vcs.modified", Value: "true"},
			},
		}, true
	}
	t.Cleanup(func() { readBuildInfo = old })

	info := Read()
	if info.Version != "v0.0.0-20250102030405-1234567890ab" {
		t.Fatalf("unexpected version %q", info.Version)
	}
	if info.Module != "example.com/fork" {
		t.Fatalf("unexpected module %q", info.Module)
	}
	line := info.String()
	if !strings.Contains(line, "(1234567890ab, modified)") {
		t.Fatalf("expected revision in %q", line)
	}
}

func TestReadWithoutBuildInfo(t *testing.T) {
	old := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }
	t.Cleanup(func() { readBuildInfo = old })

	info := Read()
	if info.Version != "v0.0.0-unknown" || info.Module != defaultModule {
		t.Fatalf("unexpected fallback %+v", info)
	}
}
