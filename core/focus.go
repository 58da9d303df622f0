package core

// Focus identifies the pane receiving keys when no popup is open.
type Focus int

const (
	FocusProjects Focus = iota
	FocusModules
	FocusProfiles
	FocusFlags
	FocusOutput
	focusCount
)

// Next returns the following pane in the ring.
func (f Focus) Next() Focus {
	return (f + 1) % focusCount
}

// Prev returns the preceding pane in the ring.
func (f Focus) Prev() Focus {
	return (f + focusCount - 1) % focusCount
}

func (f Focus) String() string {
	switch f {
	case FocusProjects:
		return "projects"
	case FocusModules:
		return "modules"
	case FocusProfiles:
		return "profiles"
	case FocusFlags:
		return "flags"
	case FocusOutput:
		return "output"
	default:
		return "unknown"
	}
}
