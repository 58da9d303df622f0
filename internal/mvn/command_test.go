package mvn

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"pkt.systems/mavdeck/schema"
)

func TestBuildArgs(t *testing.T) {
	cases := []struct {
		name string
		inv  Invocation
		want string
	}{
		{"module", Invocation{Goals: []string{"test"}, Module: "module-a"}, "-pl module-a test"},
		{"root-dot", Invocation{Goals: []string{"clean", "install"}, Module: "."}, "clean install"},
		{"root-empty", Invocation{Goals: []string{"verify"}}, "verify"},
		{
			"full-order",
			Invocation{
				Goals:      []string{"package"},
				Module:     "api",
				Profiles:   []string{"dev", "fast"},
				Flags:      []string{"-o", "-U"},
				Properties: map[string]string{"skipTests": "true", "a.b": "c"},
			},
			"-pl api -P dev,fast -o -U -Da.b=c -DskipTests=true package",
		},
	}
	for _, tc := range cases {
		got := strings.Join(BuildArgs(tc.inv), " ")
		if got != tc.want {
			t.Fatalf("case %q: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestBuildArgsRootHasNoProjectList(t *testing.T) {
	for _, arg := range BuildArgs(Invocation{Goals: []string{"test"}, Module: schema.RootModule}) {
		if arg == "-pl" {
			t.Fatalf("did not expect -pl for the root module")
		}
	}
}

func TestExecutablePrefersWrapper(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("wrapper permission bits are unix-only")
	}
	root := t.TempDir()
	if got := Executable(root, "mvn", true); got != "mvn" {
		t.Fatalf("expected mvn without wrapper, got %q", got)
	}
	wrapper := filepath.Join(root, "mvnw")
	if err := os.WriteFile(wrapper, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write wrapper: %v", err)
	}
	if got := Executable(root, "mvn", true); got != wrapper {
		t.Fatalf("expected wrapper %q, got %q", wrapper, got)
	}
	if got := Executable(root, "/opt/maven/bin/mvn", false); got != "/opt/maven/bin/mvn" {
		t.Fatalf("expected configured binary when wrapper not preferred, got %q", got)
	}
	if got := Executable(t.TempDir(), "", false); got != "mvn" {
		t.Fatalf("expected default binary, got %q", got)
	}
}

func TestExecutableIgnoresNonExecutableWrapper(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("wrapper permission bits are unix-only")
	}
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "mvnw"), []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatalf("write wrapper: %v", err)
	}
	if got := Executable(root, "mvn", true); got != "mvn" {
		t.Fatalf("expected mvn for non-executable wrapper, got %q", got)
	}
}
