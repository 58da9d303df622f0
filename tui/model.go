// Package tui renders the dashboard and dispatches keys to the session engine.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pkt.systems/mavdeck/core"
	"pkt.systems/mavdeck/internal/logx"
	"pkt.systems/mavdeck/internal/persist"
	"pkt.systems/mavdeck/schema"
)

// PrefsStore persists global preferences.
type PrefsStore interface {
	LoadPrefs() (schema.Prefs, bool, error)
	SavePrefs(prefs schema.Prefs) error
}

// StarterFinder scans a project for launchable main classes.
type StarterFinder func(ctx context.Context, project schema.Project) ([]schema.Starter, error)

// Options configure a dashboard model.
type Options struct {
	Manager  *core.Manager
	Prefs    PrefsStore
	Theme    schema.ThemeName
	Tick     time.Duration
	Paths    []string
	Renderer *lipgloss.Renderer
	Starters StarterFinder
}

type tickMsg time.Time

type projectOpenedMsg struct {
	path    string
	project schema.Project
	err     error
	replace bool
}

type startersFoundMsg struct {
	session  schema.SessionID
	starters []schema.Starter
	err      error
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	ctx      context.Context
	manager  *core.Manager
	prefs    PrefsStore
	saved    schema.Prefs
	starters StarterFinder
	keys     KeyMap
	renderer *lipgloss.Renderer
	theme    theme
	help     help.Model
	tick     time.Duration
	frame    int
	width    int
	height   int
	initial  []string

	searching   bool
	searchInput textinput.Model

	// picker is the project picker shown when no tab exists.
	picker      *core.ProjectPickerPopup
	pathInput   textinput.Model
	pathEditing bool
	status      string
	opening     int
}

// New constructs a dashboard model over manager.
func New(ctx context.Context, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Tick <= 0 {
		opts.Tick = schema.DefaultTick
	}
	m := Model{
		ctx:      ctx,
		manager:  opts.Manager,
		prefs:    opts.Prefs,
		starters: opts.Starters,
		keys:     DefaultKeyMap,
		renderer: opts.Renderer,
		help:     help.New(),
		tick:     opts.Tick,
		initial:  append([]string(nil), opts.Paths...),
	}
	if m.prefs != nil {
		prefs, _, err := m.prefs.LoadPrefs()
		if err != nil {
			logx.Ctx(ctx).Warn("prefs load failed", "err", err)
		}
		m.saved = prefs
	}
	themeName := opts.Theme
	if m.saved.Theme != "" {
		themeName = m.saved.Theme
	}
	m.theme = newTheme(themeName, m.renderer)

	m.searchInput = textinput.New()
	m.searchInput.Prompt = "/"
	m.searchInput.Placeholder = "regex"
	m.pathInput = textinput.New()
	m.pathInput.Prompt = "path: "
	m.pathInput.Placeholder = "directory containing pom.xml"

	if len(m.initial) == 0 && m.manager.Len() == 0 {
		m.openPicker(nil)
	}
	return m
}

// Init starts the drain tick and opens the initial projects.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tickCmd()}
	if m.pathEditing {
		cmds = append(cmds, textinput.Blink)
	}
	for _, path := range m.initial {
		cmds = append(cmds, m.openProject(path, false))
	}
	return tea.Batch(cmds...)
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tickMsg:
		m.frame++
		m.manager.Tick(m.ctx)
		return m, m.tickCmd()
	case projectOpenedMsg:
		m.handleOpened(msg)
		return m, nil
	case startersFoundMsg:
		m.handleStarters(msg)
		return m, nil
	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}
	s := m.manager.Active()
	if s == nil {
		return m.handlePickerKey(msg, nil)
	}
	if p := s.Popup(); p != nil {
		return m.handlePopupKey(s, p, msg)
	}

	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m.quit()
	case key.Matches(msg, k.Help):
		s.OpenPopup(&core.HelpPopup{})
	case key.Matches(msg, k.FocusNext):
		s.FocusNext()
	case key.Matches(msg, k.FocusPrev):
		s.FocusPrev()
	case key.Matches(msg, k.NewTab):
		return m.openPicker(s)
	case key.Matches(msg, k.CloseTab):
		return m.closeActive()
	case key.Matches(msg, k.NextTab):
		m.manager.Next()
	case key.Matches(msg, k.PrevTab):
		m.manager.Prev()
	case key.Matches(msg, k.Test):
		m.run(s, s.SpecFor("test"))
	case key.Matches(msg, k.Install):
		m.run(s, s.SpecFor("install"))
	case key.Matches(msg, k.Package):
		m.run(s, s.SpecFor("package"))
	case key.Matches(msg, k.Verify):
		m.run(s, s.SpecFor("verify"))
	case key.Matches(msg, k.Clean):
		m.run(s, s.SpecFor("clean"))
	case key.Matches(msg, k.Compile):
		m.run(s, s.SpecFor("compile"))
	case key.Matches(msg, k.Rerun):
		spec, ok := s.LastSpec()
		if !ok {
			s.SetStatus("nothing to re-run")
			return nil
		}
		m.run(s, spec)
	case key.Matches(msg, k.Kill):
		_ = s.Kill()
	case key.Matches(msg, k.Starter):
		if st, ok := s.DefaultStarter(); ok {
			m.run(s, s.StarterSpec(st))
			return nil
		}
		return m.scanStarters(s)
	case key.Matches(msg, k.StarterPicker):
		return m.scanStarters(s)
	case key.Matches(msg, k.StarterManager):
		s.OpenPopup(&core.StarterManagerPopup{})
	case key.Matches(msg, k.History):
		s.OpenPopup(&core.HistoryPopup{Entries: s.History()})
	case key.Matches(msg, k.Favorites):
		s.OpenPopup(&core.FavoritesPopup{})
	case key.Matches(msg, k.CustomGoals):
		goals := m.manager.Config().CustomGoals
		if len(goals) == 0 {
			s.SetStatus("no custom goals configured")
			return nil
		}
		s.OpenPopup(&core.CustomGoalPopup{Goals: goals})
	case key.Matches(msg, k.Watch):
		if err := s.SetWatch(m.ctx, !s.WatchEnabled()); err != nil {
			s.SetStatus("watch: " + err.Error())
		} else if s.WatchEnabled() {
			s.SetStatus("watching for changes")
		} else {
			s.SetStatus("watch off")
		}
	case key.Matches(msg, k.Theme):
		m.cycleTheme()
	case key.Matches(msg, k.Search):
		return m.startSearch(s)
	case key.Matches(msg, k.SearchNext):
		s.NextMatch()
	case key.Matches(msg, k.SearchPrev):
		s.PrevMatch()
	case key.Matches(msg, k.PageUp):
		s.Scroll(m.outputHeight())
	case key.Matches(msg, k.PageDown):
		s.Scroll(-m.outputHeight())
	case key.Matches(msg, k.Top):
		s.ScrollTop()
	case key.Matches(msg, k.Bottom):
		s.ScrollBottom()
	case key.Matches(msg, k.Up):
		m.movePane(s, -1)
	case key.Matches(msg, k.Down):
		m.movePane(s, 1)
	case key.Matches(msg, k.Toggle), key.Matches(msg, k.Select):
		return m.activatePane(s)
	}
	return nil
}

func (m *Model) movePane(s *core.Session, delta int) {
	switch s.Focus() {
	case core.FocusProjects:
		if delta < 0 {
			m.manager.Prev()
		} else {
			m.manager.Next()
		}
	case core.FocusModules:
		s.MoveModule(delta)
	case core.FocusProfiles:
		s.MoveProfile(delta)
	case core.FocusFlags:
		s.MoveFlag(delta)
	case core.FocusOutput:
		s.Scroll(-delta)
	}
}

func (m *Model) activatePane(s *core.Session) tea.Cmd {
	switch s.Focus() {
	case core.FocusProjects:
		return m.openPicker(s)
	case core.FocusProfiles:
		s.ToggleProfile()
	case core.FocusFlags:
		s.ToggleFlag()
	}
	return nil
}

func (m *Model) run(s *core.Session, spec schema.RunSpec) {
	if err := s.Run(m.ctx, spec); err != nil {
		if errors.Is(err, schema.ErrEmptyRun) {
			s.SetStatus("nothing to run")
		}
		// Spawn failures are already on the session status line.
	}
}

func (m *Model) scanStarters(s *core.Session) tea.Cmd {
	if m.starters == nil {
		s.OpenPopup(&core.StarterPickerPopup{Candidates: s.Starters()})
		return nil
	}
	s.SetStatus("scanning for main classes")
	ctx, find := m.ctx, m.starters
	project, id := s.Project(), s.ID()
	return func() tea.Msg {
		found, err := find(ctx, project)
		return startersFoundMsg{session: id, starters: found, err: err}
	}
}

func (m *Model) handleStarters(msg startersFoundMsg) {
	var s *core.Session
	for _, candidate := range m.manager.Sessions() {
		if candidate.ID() == msg.session {
			s = candidate
		}
	}
	if s == nil {
		return
	}
	if msg.err != nil {
		s.SetStatus("starter scan: " + msg.err.Error())
	} else {
		s.SetStatus("")
	}
	if s.Popup() != nil {
		return
	}
	s.OpenPopup(&core.StarterPickerPopup{Candidates: mergeStarters(s.Starters(), msg.starters)})
}

func mergeStarters(saved, found []schema.Starter) []schema.Starter {
	out := append([]schema.Starter(nil), saved...)
	for _, st := range found {
		dup := false
		for _, existing := range out {
			if existing.Module == st.Module && existing.MainClass == st.MainClass {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, st)
		}
	}
	return out
}

func (m *Model) startSearch(s *core.Session) tea.Cmd {
	m.searching = true
	m.searchInput.Reset()
	if search := s.Search(); search != nil {
		m.searchInput.SetValue(search.Query)
		m.searchInput.CursorEnd()
	}
	return m.searchInput.Focus()
}

func (m *Model) stopSearch() {
	m.searching = false
	m.searchInput.Blur()
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	s := m.manager.Active()
	if s == nil {
		m.stopSearch()
		return nil
	}
	switch msg.Type {
	case tea.KeyEsc:
		s.ClearSearch()
		m.stopSearch()
		return nil
	case tea.KeyEnter:
		query := m.searchInput.Value()
		if query == "" {
			s.ClearSearch()
		} else if err := s.ConfirmSearch(query); err != nil {
			s.SetStatus("search: " + err.Error())
		}
		m.stopSearch()
		return nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	query := m.searchInput.Value()
	if query == "" {
		s.ClearSearch()
		return cmd
	}
	// A half-typed pattern may not compile; the previous matches stay up.
	_ = s.UpdateSearch(query, true)
	return cmd
}

func (m *Model) handlePopupKey(s *core.Session, p core.Popup, msg tea.KeyMsg) tea.Cmd {
	k := m.keys
	if _, ok := p.(*core.ProjectPickerPopup); !ok && key.Matches(msg, k.Cancel) {
		s.DismissPopup()
		return nil
	}
	switch p := p.(type) {
	case *core.HelpPopup:
		s.DismissPopup()
	case *core.HistoryPopup:
		switch {
		case key.Matches(msg, k.Up):
			p.Cursor = core.MoveCursor(p.Cursor, -1, len(p.Entries))
		case key.Matches(msg, k.Down):
			p.Cursor = core.MoveCursor(p.Cursor, 1, len(p.Entries))
		case key.Matches(msg, k.Select):
			if p.Cursor < len(p.Entries) {
				s.DismissPopup()
				m.run(s, p.Entries[p.Cursor].Spec)
			}
		case key.Matches(msg, k.Favorite):
			if p.Cursor < len(p.Entries) {
				spec := p.Entries[p.Cursor].Spec
				s.AddFavorite("", spec)
				s.SetStatus("saved favorite: " + spec.Summary())
			}
		}
	case *core.FavoritesPopup:
		favs := s.Favorites()
		switch {
		case key.Matches(msg, k.Up):
			p.Cursor = core.MoveCursor(p.Cursor, -1, len(favs))
		case key.Matches(msg, k.Down):
			p.Cursor = core.MoveCursor(p.Cursor, 1, len(favs))
		case key.Matches(msg, k.Select):
			if p.Cursor < len(favs) {
				s.DismissPopup()
				m.run(s, favs[p.Cursor].Spec)
			}
		case key.Matches(msg, k.Delete):
			s.RemoveFavorite(p.Cursor)
			p.Cursor = core.MoveCursor(p.Cursor, 0, len(s.Favorites()))
		}
	case *core.ProjectPickerPopup:
		return m.handlePickerKey(msg, s)
	case *core.StarterPickerPopup:
		switch {
		case key.Matches(msg, k.Up):
			p.Cursor = core.MoveCursor(p.Cursor, -1, len(p.Candidates))
		case key.Matches(msg, k.Down):
			p.Cursor = core.MoveCursor(p.Cursor, 1, len(p.Candidates))
		case key.Matches(msg, k.Select):
			if p.Cursor < len(p.Candidates) {
				st := p.Candidates[p.Cursor]
				s.DismissPopup()
				m.run(s, s.StarterSpec(st))
			}
		case key.Matches(msg, k.Save):
			if p.Cursor < len(p.Candidates) {
				s.SaveStarter(p.Candidates[p.Cursor])
				s.SetStatus("saved starter " + p.Candidates[p.Cursor].MainClass)
			}
		}
	case *core.StarterManagerPopup:
		starters := s.Starters()
		switch {
		case key.Matches(msg, k.Up):
			p.Cursor = core.MoveCursor(p.Cursor, -1, len(starters))
		case key.Matches(msg, k.Down):
			p.Cursor = core.MoveCursor(p.Cursor, 1, len(starters))
		case key.Matches(msg, k.Delete):
			s.RemoveStarter(p.Cursor)
			p.Cursor = core.MoveCursor(p.Cursor, 0, len(s.Starters()))
		case key.Matches(msg, k.Select), key.Matches(msg, k.Toggle):
			s.SetDefaultStarter(p.Cursor)
		}
	case *core.CustomGoalPopup:
		switch {
		case key.Matches(msg, k.Up):
			p.Cursor = core.MoveCursor(p.Cursor, -1, len(p.Goals))
		case key.Matches(msg, k.Down):
			p.Cursor = core.MoveCursor(p.Cursor, 1, len(p.Goals))
		case key.Matches(msg, k.Select):
			if p.Cursor < len(p.Goals) {
				goal := p.Goals[p.Cursor]
				s.DismissPopup()
				m.run(s, s.SpecFor(goal.Goals...))
			}
		}
	}
	return nil
}

func (m *Model) currentPicker(s *core.Session) *core.ProjectPickerPopup {
	if s == nil {
		return m.picker
	}
	p, _ := s.Popup().(*core.ProjectPickerPopup)
	return p
}

func (m *Model) openPicker(s *core.Session) tea.Cmd {
	p := &core.ProjectPickerPopup{Paths: append([]string(nil), m.saved.RecentProjects...)}
	m.pathInput.Reset()
	m.pathEditing = len(p.Paths) == 0
	if s != nil {
		s.OpenPopup(p)
	} else {
		m.picker = p
	}
	if m.pathEditing {
		return m.pathInput.Focus()
	}
	m.pathInput.Blur()
	return nil
}

func (m *Model) closePicker(s *core.Session) {
	m.pathEditing = false
	m.pathInput.Blur()
	if s != nil {
		s.DismissPopup()
		return
	}
	m.picker = nil
}

func (m *Model) handlePickerKey(msg tea.KeyMsg, s *core.Session) tea.Cmd {
	k := m.keys
	p := m.currentPicker(s)
	if p == nil {
		switch {
		case key.Matches(msg, k.Quit):
			return m.quit()
		case key.Matches(msg, k.NewTab), key.Matches(msg, k.Select):
			return m.openPicker(s)
		}
		return nil
	}
	if m.pathEditing {
		switch msg.Type {
		case tea.KeyEsc:
			if len(p.Paths) > 0 {
				m.pathEditing = false
				m.pathInput.Blur()
			} else if s != nil {
				m.closePicker(s)
			}
			return nil
		case tea.KeyEnter:
			path := strings.TrimSpace(m.pathInput.Value())
			if path == "" {
				return nil
			}
			m.closePicker(s)
			return m.openProject(path, false)
		}
		var cmd tea.Cmd
		m.pathInput, cmd = m.pathInput.Update(msg)
		return cmd
	}
	switch {
	case key.Matches(msg, k.Cancel):
		if s != nil {
			m.closePicker(s)
		}
	case key.Matches(msg, k.Quit):
		if s == nil {
			return m.quit()
		}
	case key.Matches(msg, k.Up):
		p.Cursor = core.MoveCursor(p.Cursor, -1, len(p.Paths))
	case key.Matches(msg, k.Down):
		p.Cursor = core.MoveCursor(p.Cursor, 1, len(p.Paths))
	case key.Matches(msg, k.EditPath):
		m.pathEditing = true
		return m.pathInput.Focus()
	case key.Matches(msg, k.Select):
		if p.Cursor < len(p.Paths) {
			path := p.Paths[p.Cursor]
			m.closePicker(s)
			return m.openProject(path, false)
		}
	case key.Matches(msg, k.Replace):
		if p.Cursor < len(p.Paths) {
			path := p.Paths[p.Cursor]
			m.closePicker(s)
			return m.openProject(path, s != nil)
		}
	}
	return nil
}

// openProject runs discovery off the render loop.
func (m *Model) openProject(path string, replace bool) tea.Cmd {
	m.opening++
	m.status = "opening " + path
	ctx, mgr := m.ctx, m.manager
	return func() tea.Msg {
		project, err := mgr.Discover(ctx, path)
		return projectOpenedMsg{path: path, project: project, err: err, replace: replace}
	}
}

func (m *Model) handleOpened(msg projectOpenedMsg) {
	if m.opening > 0 {
		m.opening--
	}
	if msg.err != nil {
		text := "open " + msg.path + ": " + msg.err.Error()
		logx.Ctx(m.ctx).Warn("project open failed", "path", msg.path, "err", msg.err)
		if s := m.manager.Active(); s != nil {
			s.SetStatus(text)
			return
		}
		m.status = text
		if m.picker == nil {
			m.openPicker(nil)
		}
		return
	}
	if msg.replace {
		m.manager.ReplaceActive(m.ctx, msg.project)
	} else {
		m.manager.AddSession(m.ctx, msg.project)
	}
	m.picker = nil
	m.status = ""
	m.saved = persist.TouchRecent(m.saved, msg.project.Root)
	m.savePrefs()
}

func (m *Model) closeActive() tea.Cmd {
	if err := m.manager.CloseActive(); err != nil {
		return nil
	}
	m.savePrefs()
	if m.manager.Len() == 0 {
		return m.openPicker(nil)
	}
	return nil
}

func (m *Model) cycleTheme() {
	m.theme = newTheme(schema.NextTheme(m.theme.name), m.renderer)
	m.saved.Theme = m.theme.name
	m.savePrefs()
}

func (m *Model) savePrefs() {
	m.saved.OpenProjects = m.manager.Roots()
	if m.prefs == nil {
		return
	}
	if err := m.prefs.SavePrefs(m.saved); err != nil {
		logx.Ctx(m.ctx).Warn("prefs save failed", "err", err)
	}
}

func (m *Model) quit() tea.Cmd {
	m.manager.Shutdown()
	return tea.Quit
}
