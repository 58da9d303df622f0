package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/mavdeck"

// buildVersion is set via -ldflags "-X pkt.systems/mavdeck/internal/version.buildVersion=...".
var buildVersion = ""

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Info describes the running binary.
type Info struct {
	Module    string
	Version   string
	Revision  string
	Modified  bool
	GoVersion string
}

// Current returns the best available version string (without dirty suffix).
func Current() string {
	return Read().Version
}

// Read collects version details from the linker flag and build info.
func Read() Info {
	out := Info{
		Module:    defaultModule,
		Version:   "v0.0.0-unknown",
		GoVersion: runtime.Version(),
	}
	info, ok := readBuildInfo()
	if ok && info != nil {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			out.Module = path
		}
		vcs := vcsFromBuildInfo(info)
		out.Revision = vcs.revision
		out.Modified = vcs.modified
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			out.Version = strings.TrimSuffix(v, "+dirty")
		} else if v := vcs.pseudo(); v != "" {
			out.Version = v
		}
	}
	if v := strings.TrimSpace(buildVersion); v != "" {
		out.Version = strings.TrimSuffix(v, "+dirty")
	}
	return out
}

// String renders the version line printed by the CLI.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mavdeck %s", i.Version)
	if i.Revision != "" {
		rev := i.Revision
		if len(rev) > 12 {
			rev = rev[:12]
		}
		fmt.Fprintf(&b, " (%s", rev)
		if i.Modified {
			b.WriteString(", modified")
		}
		b.WriteString(")")
	}
	fmt.Fprintf(&b, " %s", i.GoVersion)
	return b.String()
}

type vcsInfo struct {
	revision string
	at       time.Time
	modified bool
}

func vcsFromBuildInfo(info *debug.BuildInfo) vcsInfo {
	var out vcsInfo
	if info == nil {
		return out
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			out.revision = setting.Value
		case "vcs.time":
			if parsed, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				out.at = parsed
			}
		case "vcs.modified":
			out.modified = setting.Value == "true"
		}
	}
	return out
}

// pseudo renders a Go pseudo-version from VCS stamps.
func (v vcsInfo) pseudo() string {
	if v.revision == "" || v.at.IsZero() {
		return ""
	}
	rev := v.revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return "v0.0.0-" + v.at.UTC().Format("20060102150405") + "-" + rev
}
