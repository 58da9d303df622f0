package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"pkt.systems/mavdeck/core"
	"pkt.systems/mavdeck/schema"
)

type stubHandle struct {
	events chan core.ProcessEvent
}

func newStubHandle() *stubHandle {
	return &stubHandle{events: make(chan core.ProcessEvent, 32)}
}

func (h *stubHandle) Pid() int                         { return 4242 }
func (h *stubHandle) Started() time.Time               { return time.Unix(1000, 0) }
func (h *stubHandle) Events() <-chan core.ProcessEvent { return h.events }
func (h *stubHandle) Cancel() error                    { return nil }

type stubSupervisor struct {
	handles  []*stubHandle
	requests []core.RunRequest
}

func (s *stubSupervisor) Start(_ context.Context, req core.RunRequest) (core.ProcessHandle, error) {
	s.requests = append(s.requests, req)
	h := newStubHandle()
	s.handles = append(s.handles, h)
	return h, nil
}

type stubPlanner struct{}

func (stubPlanner) Plan(project schema.Project, spec schema.RunSpec) (schema.Command, error) {
	args := append([]string{"-pl", spec.Module}, spec.Goals...)
	return schema.Command{Dir: project.Root, Executable: "mvn", Args: args}, nil
}

type stubDiscoverer struct{}

func (stubDiscoverer) Discover(_ context.Context, root string) (schema.Project, error) {
	return schema.Project{
		Root:     root,
		Name:     filepath.Base(root),
		Modules:  []schema.Module{{Name: schema.RootModule, Dir: root}, {Name: "api", Dir: filepath.Join(root, "api")}},
		Profiles: []string{"dev"},
	}, nil
}

type memPrefs struct {
	prefs schema.Prefs
	saves int
}

func (p *memPrefs) LoadPrefs() (schema.Prefs, bool, error) { return p.prefs, p.saves > 0, nil }

func (p *memPrefs) SavePrefs(prefs schema.Prefs) error {
	p.prefs = prefs
	p.saves++
	return nil
}

type fixture struct {
	sup   *stubSupervisor
	prefs *memPrefs
	mgr   *core.Manager
	root  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sup := &stubSupervisor{}
	mgr := core.NewManager(core.ManagerConfig{
		SessionDeps: core.SessionDeps{
			Supervisor: sup,
			Planner:    stubPlanner{},
			Config: schema.ServiceConfig{
				CustomGoals: []schema.CustomGoal{{Name: "tree", Goals: []string{"dependency:tree"}}},
			},
		},
		Discoverer: stubDiscoverer{},
	})
	t.Cleanup(mgr.Shutdown)
	return &fixture{sup: sup, prefs: &memPrefs{}, mgr: mgr, root: t.TempDir()}
}

func (f *fixture) model(t *testing.T, paths ...string) Model {
	t.Helper()
	return New(context.Background(), Options{Manager: f.mgr, Prefs: f.prefs, Paths: paths})
}

// openedModel returns a model with one session open on the fixture root.
func (f *fixture) openedModel(t *testing.T) Model {
	t.Helper()
	m := f.model(t, f.root)
	cmd := m.openProject(f.root, false)
	m = update(t, m, cmd())
	if f.mgr.Len() != 1 {
		t.Fatalf("expected one session, got %d", f.mgr.Len())
	}
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return model
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m = update(t, m, keyMsg(k))
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+w":
		return tea.KeyMsg{Type: tea.KeyCtrlW}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestNewWithoutProjectsShowsPicker(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)
	if m.picker == nil {
		t.Fatalf("expected empty-state picker")
	}
	if !m.pathEditing {
		t.Fatalf("expected path input when there are no recent projects")
	}
	view := m.View()
	if !strings.Contains(view, "no recent projects") {
		t.Fatalf("expected empty picker in view, got %q", view)
	}
}

func TestPickerOpensTypedPath(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)
	m = typeText(t, m, f.root)
	next, cmd := m.Update(keyMsg("enter"))
	m = next.(Model)
	if cmd == nil {
		t.Fatalf("expected discovery command")
	}
	if m.opening != 1 {
		t.Fatalf("expected one pending open, got %d", m.opening)
	}
	m = update(t, m, cmd())
	if f.mgr.Len() != 1 {
		t.Fatalf("expected session, got %d", f.mgr.Len())
	}
	if m.picker != nil {
		t.Fatalf("expected picker to close")
	}
	if got := f.prefs.prefs.RecentProjects; len(got) != 1 || got[0] != f.root {
		t.Fatalf("unexpected recent projects: %v", got)
	}
	if got := f.prefs.prefs.OpenProjects; len(got) != 1 || got[0] != f.root {
		t.Fatalf("unexpected open projects: %v", got)
	}
}

func TestOpenFailureKeepsPicker(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)
	missing := filepath.Join(f.root, "missing")
	m = update(t, m, m.openProject(missing, false)())
	if f.mgr.Len() != 0 {
		t.Fatalf("expected no session")
	}
	if !strings.Contains(m.status, "missing") {
		t.Fatalf("expected error status, got %q", m.status)
	}
	if m.picker == nil {
		t.Fatalf("expected picker to stay open")
	}
}

func TestGoalKeyRunsSelectedModule(t *testing.T) {
	f := newFixture(t)
	m := f.openedModel(t)
	m = press(t, m, "j", "t")
	if len(f.sup.requests) != 1 {
		t.Fatalf("expected one run, got %d", len(f.sup.requests))
	}
	args := strings.Join(f.sup.requests[0].Args, " ")
	if args != "-pl api test" {
		t.Fatalf("unexpected args %q", args)
	}
	s := f.mgr.Active()
	if !s.Running() {
		t.Fatalf("expected session to be running")
	}

	h := f.sup.handles[0]
	h.events <- core.ProcessEvent{Kind: core.EventLine, Line: "[INFO] BUILD SUCCESS"}
	h.events <- core.ProcessEvent{Kind: core.EventCompleted, Code: 0}
	close(h.events)
	m = update(t, m, tickMsg(time.Now()))
	if s.Running() {
		t.Fatalf("expected session to finish")
	}
	if s.LastOutcome() != schema.OutcomeSuccess {
		t.Fatalf("expected success, got %q", s.LastOutcome())
	}
	if !strings.Contains(m.View(), "BUILD SUCCESS") {
		t.Fatalf("expected output line in view")
	}

	m = press(t, m, "r")
	if len(f.sup.requests) != 2 {
		t.Fatalf("expected re-run, got %d requests", len(f.sup.requests))
	}
}

func TestRerunWithoutHistory(t *testing.T) {
	f := newFixture(t)
	m := f.openedModel(t)
	press(t, m, "r")
	if len(f.sup.requests) != 0 {
		t.Fatalf("expected no run")
	}
	if got := f.mgr.Active().Status(); got != "nothing to re-run" {
		t.Fatalf("unexpected status %q", got)
	}
}

func TestSearchFlow(t *testing.T) {
	f := newFixture(t)
	m := f.openedModel(t)
	m = press(t, m, "t")
	h := f.sup.handles[0]
	for _, line := range []string{"Running FooTest", "compile ok", "Tests run: 3"} {
		h.events <- core.ProcessEvent{Kind: core.EventLine, Line: line}
	}
	m = update(t, m, tickMsg(time.Now()))

	m = press(t, m, "/")
	if !m.searching {
		t.Fatalf("expected search mode")
	}
	m = typeText(t, m, "test")
	s := f.mgr.Active()
	if s.Search() == nil || len(s.Search().Matches()) != 2 {
		t.Fatalf("expected two live matches, got %+v", s.Search())
	}

	// Lines arriving during a live search extend it.
	h.events <- core.ProcessEvent{Kind: core.EventLine, Line: "OtherTest passed"}
	m = update(t, m, tickMsg(time.Now()))
	if got := len(s.Search().Matches()); got != 3 {
		t.Fatalf("expected live search to extend, got %d", got)
	}

	m = press(t, m, "enter")
	if m.searching {
		t.Fatalf("expected search mode to end")
	}
	if s.Search() == nil || s.Search().Query != "test" {
		t.Fatalf("expected confirmed search")
	}
	m = press(t, m, "n")
	if got := s.Search().Cursor(); got != 1 {
		t.Fatalf("expected cursor 1, got %d", got)
	}

	m = press(t, m, "/", "esc")
	if s.Search() != nil {
		t.Fatalf("expected search to clear")
	}
}

func TestPopupsOpenAndDismiss(t *testing.T) {
	f := newFixture(t)
	m := f.openedModel(t)
	s := f.mgr.Active()

	cases := []struct {
		key  string
		want string
	}{
		{"h", "History"},
		{"f", "Favorites"},
		{"c", "Custom goals"},
		{"m", "Starters"},
		{"?", "Help"},
	}
	for _, tc := range cases {
		m = press(t, m, tc.key)
		p := s.Popup()
		if p == nil || p.Title() != tc.want {
			t.Fatalf("key %q: expected %s popup, got %v", tc.key, tc.want, p)
		}
		if !strings.Contains(m.View(), tc.want) {
			t.Fatalf("key %q: expected popup title in view", tc.key)
		}
		m = press(t, m, "esc")
		if s.Popup() != nil {
			t.Fatalf("key %q: expected popup to close", tc.key)
		}
	}
}

func TestCustomGoalPopupRuns(t *testing.T) {
	f := newFixture(t)
	m := f.openedModel(t)
	press(t, m, "c", "enter")
	if len(f.sup.requests) != 1 {
		t.Fatalf("expected run from custom goal")
	}
	if got := strings.Join(f.sup.requests[0].Args, " "); got != "-pl . dependency:tree" {
		t.Fatalf("unexpected args %q", got)
	}
	if f.mgr.Active().Popup() != nil {
		t.Fatalf("expected popup to close after run")
	}
}

func TestCloseLastTabShowsPicker(t *testing.T) {
	f := newFixture(t)
	m := f.openedModel(t)
	m = press(t, m, "ctrl+w")
	if f.mgr.Len() != 0 {
		t.Fatalf("expected no sessions, got %d", f.mgr.Len())
	}
	if m.picker == nil {
		t.Fatalf("expected picker after closing last tab")
	}
	if len(m.picker.Paths) != 1 || m.picker.Paths[0] != f.root {
		t.Fatalf("expected recent project in picker, got %v", m.picker.Paths)
	}
	if len(f.prefs.prefs.OpenProjects) != 0 {
		t.Fatalf("expected open projects cleared, got %v", f.prefs.prefs.OpenProjects)
	}

	next, cmd := m.Update(keyMsg("enter"))
	m = next.(Model)
	if cmd == nil {
		t.Fatalf("expected reopen command")
	}
	update(t, m, cmd())
	if f.mgr.Len() != 1 {
		t.Fatalf("expected project to reopen")
	}
}

func TestThemeCycleIsSaved(t *testing.T) {
	f := newFixture(t)
	m := f.openedModel(t)
	before := m.theme.name
	m = press(t, m, "T")
	if m.theme.name == before {
		t.Fatalf("expected theme to change from %q", before)
	}
	if f.prefs.prefs.Theme != m.theme.name {
		t.Fatalf("expected saved theme %q, got %q", m.theme.name, f.prefs.prefs.Theme)
	}

	reloaded := New(context.Background(), Options{Manager: f.mgr, Prefs: f.prefs})
	if reloaded.theme.name != m.theme.name {
		t.Fatalf("expected saved theme to load, got %q", reloaded.theme.name)
	}
}

func TestQuitShutsDownSessions(t *testing.T) {
	f := newFixture(t)
	m := f.openedModel(t)
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
	if f.mgr.Len() != 0 {
		t.Fatalf("expected sessions closed")
	}
}

func TestViewSmallWindow(t *testing.T) {
	f := newFixture(t)
	m := f.openedModel(t)
	m = update(t, m, tea.WindowSizeMsg{Width: 20, Height: 6})
	if m.outputHeight() != 1 {
		t.Fatalf("expected minimum output height, got %d", m.outputHeight())
	}
	if m.View() == "" {
		t.Fatalf("expected non-empty view")
	}
}

func TestMergeStartersSkipsDuplicates(t *testing.T) {
	saved := []schema.Starter{{Module: "api", MainClass: "com.example.App", Default: true}}
	found := []schema.Starter{
		{Module: "api", MainClass: "com.example.App"},
		{Module: "api", MainClass: "com.example.Tool"},
	}
	got := mergeStarters(saved, found)
	if len(got) != 2 {
		t.Fatalf("expected 2 starters, got %d", len(got))
	}
	if !got[0].Default || got[1].MainClass != "com.example.Tool" {
		t.Fatalf("unexpected merge %+v", got)
	}
}
