package core

import (
	"context"
	"time"

	"pkt.systems/mavdeck/schema"
)

// EventKind identifies a process event.
type EventKind string

const (
	// EventLine carries one raw output line.
	EventLine EventKind = "line"
	// EventCompleted is the terminal event for a process that exited.
	EventCompleted EventKind = "completed"
	// EventError is the terminal event for a process whose wait failed.
	EventError EventKind = "error"
)

// ProcessEvent is an immutable value sent from a process worker.
type ProcessEvent struct {
	Kind    EventKind
	Line    string
	Code    int
	Message string
}

// Terminal reports whether the event ends the stream.
func (e ProcessEvent) Terminal() bool {
	return e.Kind == EventCompleted || e.Kind == EventError
}

// ProcessHandle is a live process started by a Supervisor.
// Events delivers line events in emission order followed by exactly one
// terminal event, after which the channel is closed.
type ProcessHandle interface {
	Pid() int
	Started() time.Time
	Events() <-chan ProcessEvent
	// Cancel requests termination. It is a no-op once the process has exited.
	Cancel() error
}

// RunRequest is the fully resolved command handed to a Supervisor.
type RunRequest = schema.Command

// Supervisor spawns external processes.
type Supervisor interface {
	Start(ctx context.Context, req RunRequest) (ProcessHandle, error)
}

// Planner resolves a run spec into a command for a project.
type Planner interface {
	Plan(project schema.Project, spec schema.RunSpec) (schema.Command, error)
}

// Discoverer inspects a directory and returns the project rooted there.
type Discoverer interface {
	Discover(ctx context.Context, root string) (schema.Project, error)
}

// StateStore persists per-project state.
type StateStore interface {
	LoadProject(root string) (schema.ProjectState, bool, error)
	SaveProject(root string, state schema.ProjectState) error
}

// ChangeSource reports debounced filesystem changes for a project.
type ChangeSource interface {
	// Poll is called from the render loop and returns true when a re-run is due.
	Poll() bool
	Close() error
}

// WatchFactory opens a ChangeSource for a project root.
type WatchFactory func(ctx context.Context, root string) (ChangeSource, error)

// Normalizer turns a raw line into display text; ok is false for lines to drop.
type Normalizer func(raw string) (text string, ok bool)
