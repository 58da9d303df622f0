// Package mvn knows how to talk to Maven: argument construction, launch
// strategy, and project discovery from pom files.
package mvn

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"pkt.systems/mavdeck/schema"
)

// Invocation is the input to BuildArgs.
type Invocation struct {
	Goals      []string
	Module     string
	Profiles   []string
	Flags      []string
	Properties map[string]string
}

// BuildArgs returns the argument list in the order
// [-pl module] [-P p1,p2] [flags...] [-Dk=v ...] goals...
// A module of "." or "" targets the whole reactor and adds no -pl.
func BuildArgs(inv Invocation) []string {
	var args []string
	module := strings.TrimSpace(inv.Module)
	if module != "" && module != schema.RootModule {
		args = append(args, "-pl", module)
	}
	if len(inv.Profiles) > 0 {
		args = append(args, "-P", strings.Join(inv.Profiles, ","))
	}
	args = append(args, inv.Flags...)
	if len(inv.Properties) > 0 {
		keys := make([]string, 0, len(inv.Properties))
		for k := range inv.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			args = append(args, "-D"+k+"="+inv.Properties[k])
		}
	}
	args = append(args, inv.Goals...)
	return args
}

// WrapperName is the platform's Maven wrapper script name.
func WrapperName() string {
	if runtime.GOOS == "windows" {
		return "mvnw.cmd"
	}
	return "mvnw"
}

// HasWrapper reports whether root carries an executable Maven wrapper.
func HasWrapper(root string) bool {
	info, err := os.Stat(filepath.Join(root, WrapperName()))
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// Executable picks the project wrapper when preferred and present, else binary.
func Executable(root, binary string, preferWrapper bool) string {
	if preferWrapper && HasWrapper(root) {
		return filepath.Join(root, WrapperName())
	}
	if strings.TrimSpace(binary) == "" {
		return "mvn"
	}
	return binary
}
