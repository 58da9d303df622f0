package schema

import (
	"strings"
)

// NormalizeRunSpec trims fields and dedupes profiles.
// Goal and flag order is preserved; profiles are sorted.
func NormalizeRunSpec(spec RunSpec) RunSpec {
	out := RunSpec{
		Module:    strings.TrimSpace(spec.Module),
		MainClass: strings.TrimSpace(spec.MainClass),
		Profiles:  sortedUnique(spec.Profiles),
	}
	if out.Module == "" {
		out.Module = RootModule
	}
	for _, g := range spec.Goals {
		if g = strings.TrimSpace(g); g != "" {
			out.Goals = append(out.Goals, g)
		}
	}
	for _, f := range spec.Flags {
		if f = strings.TrimSpace(f); f != "" {
			out.Flags = append(out.Flags, f)
		}
	}
	if len(spec.Properties) > 0 {
		out.Properties = make(map[string]string, len(spec.Properties))
		for k, v := range spec.Properties {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			out.Properties[k] = v
		}
	}
	return out
}

// NormalizeLaunchMode returns a canonical launch mode.
func NormalizeLaunchMode(value string) (LaunchMode, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	switch normalized {
	case "", "auto":
		return LaunchAuto, true
	case "force-run", "run":
		return LaunchForceRun, true
	case "force-exec", "exec":
		return LaunchForceExec, true
	default:
		return "", false
	}
}
