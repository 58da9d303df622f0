package schema

import "time"

// SessionID identifies a dashboard session (one tab).
type SessionID string

// ThemeName identifies a UI theme.
type ThemeName string

// LaunchMode selects how starters are launched.
type LaunchMode string

const (
	// LaunchAuto prefers the framework run goal when the plugin is declared.
	LaunchAuto LaunchMode = "auto"
	// LaunchForceRun always uses the framework run goal.
	LaunchForceRun LaunchMode = "force-run"
	// LaunchForceExec always uses exec:java.
	LaunchForceExec LaunchMode = "force-exec"
)

// Outcome is the terminal result of a run.
type Outcome string

const (
	// OutcomeNone means no run has finished yet.
	OutcomeNone Outcome = ""
	// OutcomeSuccess is a zero exit status.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure is a non-zero exit status.
	OutcomeFailure Outcome = "failure"
	// OutcomeKilled is a run ended by a kill request.
	OutcomeKilled Outcome = "killed"
	// OutcomeError is a run that ended without a usable exit status.
	OutcomeError Outcome = "error"
)

// Command is a fully resolved process invocation.
type Command struct {
	Dir        string
	Executable string
	Args       []string
	Env        []string
}

// Flag is a toggleable build-tool argument set.
type Flag struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	Arg  string `json:"arg" yaml:"arg" mapstructure:"arg"`
}

// CustomGoal is a named goal list from configuration.
type CustomGoal struct {
	Name  string   `json:"name" yaml:"name" mapstructure:"name"`
	Goals []string `json:"goals" yaml:"goals" mapstructure:"goals"`
}

// Starter is a launchable main class.
type Starter struct {
	Name      string `json:"name"`
	Module    string `json:"module"`
	MainClass string `json:"main_class"`
	Default   bool   `json:"default,omitempty"`
}

// HistoryEntry records a finished run.
type HistoryEntry struct {
	Spec     RunSpec   `json:"spec"`
	At       time.Time `json:"at"`
	Outcome  Outcome   `json:"outcome"`
	Duration int64     `json:"duration_ms"`
}

// Favorite is a named run spec.
type Favorite struct {
	Name string  `json:"name"`
	Spec RunSpec `json:"spec"`
}

// Selections captures a project's pane selections.
type Selections struct {
	Module   string   `json:"module,omitempty"`
	Profiles []string `json:"profiles,omitempty"`
	Flags    []string `json:"flags,omitempty"`
}

// ProjectState is the persisted per-project state.
type ProjectState struct {
	History    []HistoryEntry `json:"history,omitempty"`
	Favorites  []Favorite     `json:"favorites,omitempty"`
	Starters   []Starter      `json:"starters,omitempty"`
	Selections Selections     `json:"selections"`
	Watch      bool           `json:"watch,omitempty"`
}

// Prefs is the persisted global preference state.
type Prefs struct {
	RecentProjects []string  `json:"recent_projects,omitempty"`
	OpenProjects   []string  `json:"open_projects,omitempty"`
	Theme          ThemeName `json:"theme,omitempty"`
}
