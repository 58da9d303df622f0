package core

import "pkt.systems/mavdeck/schema"

// Popup is a modal overlay. The concrete types below are the only variants;
// a nil Popup means normal pane focus.
type Popup interface {
	Title() string
	isPopup()
}

// HistoryPopup lists past runs newest first.
type HistoryPopup struct {
	Cursor  int
	Entries []schema.HistoryEntry
}

// FavoritesPopup lists saved run specs.
type FavoritesPopup struct {
	Cursor int
}

// ProjectPickerPopup lists recent projects to open.
type ProjectPickerPopup struct {
	Cursor int
	Paths  []string
}

// StarterPickerPopup lists launchable main classes.
type StarterPickerPopup struct {
	Cursor     int
	Candidates []schema.Starter
}

// StarterManagerPopup edits saved starters.
type StarterManagerPopup struct {
	Cursor int
}

// CustomGoalPopup lists configured goal lists.
type CustomGoalPopup struct {
	Cursor int
	Goals  []schema.CustomGoal
}

// HelpPopup shows key bindings.
type HelpPopup struct{}

func (*HistoryPopup) Title() string        { return "History" }
func (*FavoritesPopup) Title() string      { return "Favorites" }
func (*ProjectPickerPopup) Title() string  { return "Open project" }
func (*StarterPickerPopup) Title() string  { return "Run starter" }
func (*StarterManagerPopup) Title() string { return "Starters" }
func (*CustomGoalPopup) Title() string     { return "Custom goals" }
func (*HelpPopup) Title() string           { return "Help" }

func (*HistoryPopup) isPopup()        {}
func (*FavoritesPopup) isPopup()      {}
func (*ProjectPickerPopup) isPopup()  {}
func (*StarterPickerPopup) isPopup()  {}
func (*StarterManagerPopup) isPopup() {}
func (*CustomGoalPopup) isPopup()     {}
func (*HelpPopup) isPopup()           {}

// MoveCursor moves a popup list cursor by delta and clamps it to n entries.
func MoveCursor(cursor, delta, n int) int {
	if n <= 0 {
		return 0
	}
	cursor += delta
	if cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}
