package schema

import "errors"

var (
	// ErrSpawn indicates a process could not be started.
	ErrSpawn = errors.New("spawn failed")
	// ErrKill indicates a process could not be signalled.
	ErrKill = errors.New("kill failed")
	// ErrPattern indicates an invalid search pattern.
	ErrPattern = errors.New("invalid pattern")
	// ErrDiscovery indicates a project could not be discovered in time.
	ErrDiscovery = errors.New("discovery failed")
	// ErrChannel indicates an event channel closed without a terminal event.
	ErrChannel = errors.New("event channel closed")
	// ErrNotProject indicates the path is not a recognized project root.
	ErrNotProject = errors.New("not a project root")
	// ErrSessionNotFound indicates a session index or id is out of range.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmptyRun indicates a run spec without goals or main class.
	ErrEmptyRun = errors.New("nothing to run")
)
