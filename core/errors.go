package core

import (
	"fmt"

	"pkt.systems/mavdeck/schema"
)

// ErrorKind classifies session engine failures.
type ErrorKind string

const (
	// ErrorSpawn indicates the executable was missing or the OS refused the process.
	ErrorSpawn ErrorKind = "spawn"
	// ErrorKill indicates a signal could not be delivered.
	ErrorKill ErrorKind = "kill"
	// ErrorPattern indicates an invalid search pattern.
	ErrorPattern ErrorKind = "pattern"
	// ErrorDiscovery indicates project discovery failed or timed out.
	ErrorDiscovery ErrorKind = "discovery"
	// ErrorChannel indicates the event channel closed without a terminal event.
	ErrorChannel ErrorKind = "channel"
)

// RunError wraps engine failures with a stable classification.
type RunError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

// NewRunError constructs a classified error.
func NewRunError(kind ErrorKind, op string, err error) *RunError {
	return &RunError{Kind: kind, Op: op, Err: err}
}

func (e *RunError) Error() string {
	if e == nil {
		return "run error"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %v", e.Op, e.Err)
		}
		return e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s failed", e.Op)
	}
	return "run error"
}

func (e *RunError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the schema sentinel for the error kind.
func (e *RunError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ErrorSpawn:
		return target == schema.ErrSpawn
	case ErrorKill:
		return target == schema.ErrKill
	case ErrorPattern:
		return target == schema.ErrPattern
	case ErrorDiscovery:
		return target == schema.ErrDiscovery
	case ErrorChannel:
		return target == schema.ErrChannel
	}
	return false
}
