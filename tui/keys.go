package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard key bindings.
type KeyMap struct {
	Quit      key.Binding
	Help      key.Binding
	FocusNext key.Binding
	FocusPrev key.Binding
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	Select    key.Binding
	Cancel    key.Binding

	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding

	NewTab   key.Binding
	CloseTab key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding

	Test    key.Binding
	Install key.Binding
	Package key.Binding
	Verify  key.Binding
	Clean   key.Binding
	Compile key.Binding
	Rerun   key.Binding
	Kill    key.Binding

	Starter        key.Binding
	StarterPicker  key.Binding
	StarterManager key.Binding
	History        key.Binding
	Favorites      key.Binding
	CustomGoals    key.Binding
	Watch          key.Binding
	Theme          key.Binding

	Search     key.Binding
	SearchNext key.Binding
	SearchPrev key.Binding

	// Popup-local bindings.
	Favorite key.Binding
	Delete   key.Binding
	Replace  key.Binding
	Save     key.Binding
	EditPath key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	FocusNext: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
	FocusPrev: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("S-tab", "prev pane")),
	Up:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),

	PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("PgUp", "scroll up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("PgDn", "scroll down")),
	Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "follow")),

	NewTab:   key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("C-t", "open project")),
	CloseTab: key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("C-w", "close tab")),
	NextTab:  key.NewBinding(key.WithKeys("ctrl+right"), key.WithHelp("C-→", "next tab")),
	PrevTab:  key.NewBinding(key.WithKeys("ctrl+left"), key.WithHelp("C-←", "prev tab")),

	Test:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "test")),
	Install: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "install")),
	Package: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "package")),
	Verify:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "verify")),
	Clean:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "clean")),
	Compile: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "compile")),
	Rerun:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "re-run")),
	Kill:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "kill")),

	Starter:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "run starter")),
	StarterPicker:  key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "pick starter")),
	StarterManager: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "starters")),
	History:        key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
	Favorites:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorites")),
	CustomGoals:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "custom goals")),
	Watch:          key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "watch")),
	Theme:          key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "theme")),

	Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	SearchNext: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next match")),
	SearchPrev: key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "prev match")),

	Favorite: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "save favorite")),
	Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Replace:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open here")),
	Save:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
	EditPath: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "type path")),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Test, k.Install, k.Rerun, k.Kill, k.Search, k.History, k.NewTab, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Test, k.Install, k.Package, k.Verify, k.Clean, k.Compile, k.Rerun, k.Kill},
		{k.Starter, k.StarterPicker, k.StarterManager, k.CustomGoals, k.History, k.Favorites, k.Watch},
		{k.FocusNext, k.FocusPrev, k.Up, k.Down, k.Toggle, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Search, k.SearchNext, k.SearchPrev, k.NewTab, k.CloseTab, k.NextTab, k.PrevTab, k.Theme, k.Quit},
	}
}
