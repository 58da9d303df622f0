package schema

import (
	"sort"
	"strings"
)

// RootModule is the module name that addresses the whole reactor.
const RootModule = "."

// RunSpec describes one build-tool invocation independent of the binary.
type RunSpec struct {
	Goals      []string          `json:"goals,omitempty"`
	Module     string            `json:"module,omitempty"`
	Profiles   []string          `json:"profiles,omitempty"`
	Flags      []string          `json:"flags,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	MainClass  string            `json:"main_class,omitempty"`
}

// Empty reports whether the run spec has nothing to run.
func (r RunSpec) Empty() bool {
	return len(r.Goals) == 0 && strings.TrimSpace(r.MainClass) == ""
}

// Summary renders a short human label for the run spec.
func (r RunSpec) Summary() string {
	var parts []string
	if r.MainClass != "" {
		parts = append(parts, "run "+shortClass(r.MainClass))
	} else {
		parts = append(parts, strings.Join(r.Goals, " "))
	}
	if r.Module != "" && r.Module != RootModule {
		parts = append(parts, "["+r.Module+"]")
	}
	if len(r.Profiles) > 0 {
		parts = append(parts, "-P "+strings.Join(r.Profiles, ","))
	}
	if len(r.Flags) > 0 {
		parts = append(parts, strings.Join(r.Flags, " "))
	}
	return strings.Join(parts, " ")
}

// Equal compares two specs after normalization.
func (r RunSpec) Equal(other RunSpec) bool {
	a := NormalizeRunSpec(r)
	b := NormalizeRunSpec(other)
	if a.Module != b.Module || a.MainClass != b.MainClass {
		return false
	}
	if !equalStrings(a.Goals, b.Goals) || !equalStrings(a.Profiles, b.Profiles) || !equalStrings(a.Flags, b.Flags) {
		return false
	}
	if len(a.Properties) != len(b.Properties) {
		return false
	}
	for k, v := range a.Properties {
		if b.Properties[k] != v {
			return false
		}
	}
	return true
}

// Module is a build module inside a project.
type Module struct {
	Name           string   `json:"name"`
	Dir            string   `json:"dir"`
	Packaging      string   `json:"packaging,omitempty"`
	FrameworkRun   bool     `json:"framework_run,omitempty"`
	ExecPlugin     bool     `json:"exec_plugin,omitempty"`
	MainClass      string   `json:"main_class,omitempty"`
	DeclaredPlugin []string `json:"plugins,omitempty"`
}

// Project is a discovered project root.
type Project struct {
	Root       string   `json:"root"`
	Name       string   `json:"name"`
	Modules    []Module `json:"modules"`
	Profiles   []string `json:"profiles"`
	HasWrapper bool     `json:"has_wrapper"`
	Branch     string   `json:"branch,omitempty"`
}

// Module returns the named module, if present.
func (p Project) Module(name string) (Module, bool) {
	for _, m := range p.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return Module{}, false
}

func shortClass(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 && idx < len(name)-1 {
		return name[idx+1:]
	}
	return name
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedUnique(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
