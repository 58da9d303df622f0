package mvn

import (
	"strings"
	"testing"

	"pkt.systems/mavdeck/schema"
)

func TestDecideStrategy(t *testing.T) {
	cases := []struct {
		name string
		caps Capabilities
		mode schema.LaunchMode
		want Strategy
	}{
		{"auto-boot", Capabilities{FrameworkRun: true}, schema.LaunchAuto, StrategyFrameworkRun},
		{"auto-plain", Capabilities{}, schema.LaunchAuto, StrategyExecJava},
		{"auto-exec-plugin", Capabilities{ExecPlugin: true}, schema.LaunchAuto, StrategyExecJava},
		{"force-run", Capabilities{}, schema.LaunchForceRun, StrategyFrameworkRun},
		{"force-exec", Capabilities{FrameworkRun: true}, schema.LaunchForceExec, StrategyExecJava},
	}
	for _, tc := range cases {
		if got := DecideStrategy(tc.caps, tc.mode); got != tc.want {
			t.Fatalf("case %q: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestPlannerStarterUsesStrategy(t *testing.T) {
	project := schema.Project{
		Root: "/src/demo",
		Modules: []schema.Module{
			{Name: "."},
			{Name: "web", FrameworkRun: true},
			{Name: "cli"},
		},
	}
	p := Planner{Binary: "mvn", Mode: schema.LaunchAuto}

	cmd, err := p.Plan(project, schema.RunSpec{Module: "web", MainClass: "com.example.Web"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if got := strings.Join(cmd.Args, " "); got != "-pl web -Dspring-boot.run.main-class=com.example.Web spring-boot:run" {
		t.Fatalf("unexpected web args: %q", got)
	}

	cmd, err = p.Plan(project, schema.RunSpec{Module: "cli", MainClass: "com.example.Cli", Profiles: []string{"dev"}})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if got := strings.Join(cmd.Args, " "); got != "-pl cli -P dev -Dexec.mainClass=com.example.Cli exec:java" {
		t.Fatalf("unexpected cli args: %q", got)
	}
}

func TestPlannerRejectsEmptySpec(t *testing.T) {
	if _, err := (Planner{}).Plan(schema.Project{Root: "/x"}, schema.RunSpec{}); err == nil {
		t.Fatalf("expected error for empty spec")
	}
}

func TestPlannerGoals(t *testing.T) {
	cmd, err := Planner{Binary: "mvn"}.Plan(schema.Project{Root: "/src/demo"}, schema.RunSpec{Goals: []string{"test"}, Module: "module-a"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if cmd.Executable != "mvn" || cmd.Dir != "/src/demo" {
		t.Fatalf("unexpected command %+v", cmd)
	}
	if got := strings.Join(cmd.Args, " "); got != "-pl module-a test" {
		t.Fatalf("unexpected args %q", got)
	}
}
