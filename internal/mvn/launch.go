package mvn

import "pkt.systems/mavdeck/schema"

// Strategy is how a starter is launched.
type Strategy string

const (
	// StrategyFrameworkRun uses spring-boot:run.
	StrategyFrameworkRun Strategy = "spring-boot:run"
	// StrategyExecJava uses exec:java.
	StrategyExecJava Strategy = "exec:java"
)

const (
	frameworkRunGoal      = "spring-boot:run"
	frameworkMainProperty = "spring-boot.run.main-class"
	execJavaGoal          = "exec:java"
	execMainProperty      = "exec.mainClass"
)

// Capabilities are the launch-relevant plugins declared by a module.
type Capabilities struct {
	FrameworkRun bool
	ExecPlugin   bool
}

// CapabilitiesOf returns the capabilities recorded for a module.
func CapabilitiesOf(m schema.Module) Capabilities {
	return Capabilities{FrameworkRun: m.FrameworkRun, ExecPlugin: m.ExecPlugin}
}

// DecideStrategy picks the launch strategy for a mode. Auto prefers the
// framework run goal when its plugin is declared and falls back to exec:java.
func DecideStrategy(caps Capabilities, mode schema.LaunchMode) Strategy {
	switch mode {
	case schema.LaunchForceRun:
		return StrategyFrameworkRun
	case schema.LaunchForceExec:
		return StrategyExecJava
	}
	if caps.FrameworkRun {
		return StrategyFrameworkRun
	}
	return StrategyExecJava
}

// LaunchInvocation returns the goals and properties that start mainClass.
func LaunchInvocation(strategy Strategy, mainClass string) ([]string, map[string]string) {
	props := map[string]string{}
	switch strategy {
	case StrategyFrameworkRun:
		if mainClass != "" {
			props[frameworkMainProperty] = mainClass
		}
		return []string{frameworkRunGoal}, props
	default:
		if mainClass != "" {
			props[execMainProperty] = mainClass
		}
		return []string{execJavaGoal}, props
	}
}
