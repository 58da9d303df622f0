package mvn

import (
	"path/filepath"

	"pkt.systems/mavdeck/schema"
)

// Planner resolves run specs into Maven commands.
type Planner struct {
	Binary        string
	PreferWrapper bool
	Mode          schema.LaunchMode
	Env           []string
}

// Plan builds the command for spec in project. Starter specs (with a main
// class) are translated through the launch strategy for their module.
func (p Planner) Plan(project schema.Project, spec schema.RunSpec) (schema.Command, error) {
	spec = schema.NormalizeRunSpec(spec)
	if spec.Empty() {
		return schema.Command{}, schema.ErrEmptyRun
	}
	inv := Invocation{
		Goals:      spec.Goals,
		Module:     spec.Module,
		Profiles:   spec.Profiles,
		Flags:      spec.Flags,
		Properties: spec.Properties,
	}
	if spec.MainClass != "" {
		module, _ := project.Module(spec.Module)
		strategy := DecideStrategy(CapabilitiesOf(module), p.Mode)
		goals, props := LaunchInvocation(strategy, spec.MainClass)
		inv.Goals = append(goals, spec.Goals...)
		merged := make(map[string]string, len(props)+len(spec.Properties))
		for k, v := range spec.Properties {
			merged[k] = v
		}
		for k, v := range props {
			merged[k] = v
		}
		inv.Properties = merged
	}
	root := project.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return schema.Command{
		Dir:        root,
		Executable: Executable(root, p.Binary, p.PreferWrapper),
		Args:       BuildArgs(inv),
		Env:        p.Env,
	}, nil
}
