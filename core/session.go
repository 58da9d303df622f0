package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"pkt.systems/mavdeck/internal/logline"
	"pkt.systems/mavdeck/internal/logx"
	"pkt.systems/mavdeck/schema"
	"pkt.systems/pslog"
)

// RunState is the process state of a session.
type RunState int

const (
	RunIdle RunState = iota
	RunRunning
)

func (r RunState) String() string {
	if r == RunRunning {
		return "running"
	}
	return "idle"
}

// SessionDeps are the collaborators shared by all sessions of a manager.
type SessionDeps struct {
	Supervisor Supervisor
	Planner    Planner
	Store      StateStore
	Watch      WatchFactory
	Normalize  Normalizer
	Config     schema.ServiceConfig
	Now        func() time.Time
	// WatchDefault is the watch toggle for projects without saved state.
	WatchDefault bool
}

func (d SessionDeps) withDefaults() SessionDeps {
	d.Config = schema.NormalizeServiceConfig(d.Config)
	if d.Normalize == nil {
		d.Normalize = logline.Normalize
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Session owns one project's output, selections, process and search state.
// It is not safe for concurrent use; the render loop is its only caller.
type Session struct {
	id      schema.SessionID
	project schema.Project
	deps    SessionDeps
	log     pslog.Logger

	buf       *buffer
	history   *historyBuffer
	favorites []schema.Favorite
	starters  []schema.Starter

	state         RunState
	handle        ProcessHandle
	events        <-chan ProcessEvent
	current       schema.RunSpec
	startedAt     time.Time
	killRequested bool
	pending       *schema.RunSpec
	lastSpec      *schema.RunSpec
	lastOutcome   schema.Outcome
	lastCode      int
	lastDuration  time.Duration
	status        string
	lastErr       error

	search     *SearchState
	viewHeight int

	focus      Focus
	savedFocus Focus
	popup      Popup

	moduleCursor  int
	profileCursor int
	flagCursor    int
	profiles      map[string]bool
	flags         map[string]bool

	watch        ChangeSource
	watchEnabled bool
}

func newSession(ctx context.Context, project schema.Project, deps SessionDeps) *Session {
	id := newID()
	s := &Session{
		id:       id,
		project:  project,
		deps:     deps,
		log:      logx.WithProject(logx.WithSession(logx.Ctx(ctx), id), project.Root),
		buf:      newBufferWithMaxLines(deps.Config.BufferMaxLines),
		history:  newHistory(defaultHistoryMax),
		profiles: map[string]bool{},
		flags:    map[string]bool{},
		focus:    FocusModules,
	}
	s.restore()
	if s.watchEnabled {
		s.watchEnabled = false
		if err := s.SetWatch(ctx, true); err != nil {
			s.log.Warn("session watch restore failed", "err", err)
		}
	}
	s.log.Info("session opened", "modules", len(project.Modules), "profiles", len(project.Profiles))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() schema.SessionID { return s.id }

// Project returns the discovered project.
func (s *Session) Project() schema.Project { return s.project }

// Name returns a short tab label.
func (s *Session) Name() string {
	if s.project.Name != "" {
		return s.project.Name
	}
	return filepath.Base(s.project.Root)
}

// State returns the run state.
func (s *Session) State() RunState { return s.state }

// Running reports whether a process is live.
func (s *Session) Running() bool { return s.state == RunRunning }

// Pending returns the queued spec, if any.
func (s *Session) Pending() (schema.RunSpec, bool) {
	if s.pending == nil {
		return schema.RunSpec{}, false
	}
	return *s.pending, true
}

// Current returns the run spec of the live process.
func (s *Session) Current() schema.RunSpec { return s.current }

// LastSpec returns the most recently started spec.
func (s *Session) LastSpec() (schema.RunSpec, bool) {
	if s.lastSpec == nil {
		return schema.RunSpec{}, false
	}
	return *s.lastSpec, true
}

// LastOutcome returns the outcome of the most recent finished run.
func (s *Session) LastOutcome() schema.Outcome { return s.lastOutcome }

// LastExitCode returns the exit code of the most recent finished run.
func (s *Session) LastExitCode() int { return s.lastCode }

// LastDuration returns the wall time of the most recent finished run.
func (s *Session) LastDuration() time.Duration { return s.lastDuration }

// Status returns the status line text.
func (s *Session) Status() string { return s.status }

// Err returns the last surfaced error.
func (s *Session) Err() error { return s.lastErr }

// Elapsed returns how long the live run has been going.
func (s *Session) Elapsed() time.Duration {
	if s.state != RunRunning {
		return 0
	}
	return s.deps.Now().Sub(s.startedAt)
}

// Pid returns the live process id, or 0.
func (s *Session) Pid() int {
	if s.handle == nil {
		return 0
	}
	return s.handle.Pid()
}

// SetStatus replaces the status line text.
func (s *Session) SetStatus(text string) { s.status = text }

// Run starts spec. While a process is live, spec is queued and the live
// process is cancelled; the queued spec starts once its terminal event arrives.
func (s *Session) Run(ctx context.Context, spec schema.RunSpec) error {
	spec = schema.NormalizeRunSpec(spec)
	if spec.Empty() {
		return schema.ErrEmptyRun
	}
	if s.state == RunRunning {
		s.pending = &spec
		s.log.Info("session run queued", "spec", spec.Summary())
		if !s.killRequested {
			if err := s.Kill(); err != nil {
				return err
			}
		}
		s.status = "restarting: " + spec.Summary()
		return nil
	}
	return s.start(ctx, spec)
}

func (s *Session) start(ctx context.Context, spec schema.RunSpec) error {
	if s.deps.Planner == nil || s.deps.Supervisor == nil {
		err := NewRunError(ErrorSpawn, "start", errors.New("no supervisor configured"))
		s.fail(err)
		return err
	}
	cmd, err := s.deps.Planner.Plan(s.project, spec)
	if err != nil {
		err = NewRunError(ErrorSpawn, "plan", err)
		s.fail(err)
		return err
	}
	handle, err := s.deps.Supervisor.Start(ctx, cmd)
	if err != nil {
		var runErr *RunError
		if !errors.As(err, &runErr) {
			err = NewRunError(ErrorSpawn, "start", err)
		}
		s.fail(err)
		return err
	}
	s.buf.Clear()
	s.search.Reset()
	s.state = RunRunning
	s.handle = handle
	s.events = handle.Events()
	s.current = spec
	last := spec
	s.lastSpec = &last
	s.startedAt = handle.Started()
	if s.startedAt.IsZero() {
		s.startedAt = s.deps.Now()
	}
	s.killRequested = false
	s.lastErr = nil
	s.status = "running: " + spec.Summary()
	s.log.Info("session run started", "spec", spec.Summary(), "pid", handle.Pid(), "executable", cmd.Executable, "args", cmd.Args)
	return nil
}

func (s *Session) fail(err error) {
	s.lastErr = err
	s.status = "error: " + err.Error()
	s.log.Warn("session run failed", "err", err)
}

// Kill cancels the live process. The session stays Running until the terminal
// event is drained. Without a live process it is a no-op.
func (s *Session) Kill() error {
	if s.state != RunRunning || s.handle == nil {
		return nil
	}
	if err := s.handle.Cancel(); err != nil {
		var runErr *RunError
		if !errors.As(err, &runErr) {
			err = NewRunError(ErrorKill, "cancel", err)
		}
		s.lastErr = err
		s.status = "kill failed: " + err.Error()
		s.log.Warn("session kill failed", "err", err, "pid", s.handle.Pid())
		return err
	}
	s.killRequested = true
	s.status = "stopping"
	s.log.Info("session kill requested", "pid", s.handle.Pid())
	return nil
}

// Drain consumes every event currently queued on the live process channel
// without blocking. It returns true when anything changed.
func (s *Session) Drain(ctx context.Context) bool {
	if s.events == nil {
		return false
	}
	changed := false
	var batch []string
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				s.ingest(batch)
				s.finish(ctx, schema.OutcomeError, -1, NewRunError(ErrorChannel, "drain", schema.ErrChannel))
				return true
			}
			changed = true
			if ev.Kind == EventLine {
				if text, keep := s.deps.Normalize(ev.Line); keep {
					batch = append(batch, text)
				}
				continue
			}
			s.ingest(batch)
			s.handleTerminal(ctx, ev)
			return true
		default:
			s.ingest(batch)
			return changed
		}
	}
}

func (s *Session) ingest(texts []string) {
	if len(texts) == 0 {
		return
	}
	added, trimmed := s.buf.Append(texts...)
	if s.search == nil {
		return
	}
	if trimmed > 0 {
		s.search.Prune(s.buf.FirstIndex())
	}
	if s.search.Live {
		s.search.Extend(added)
	}
}

func (s *Session) handleTerminal(ctx context.Context, ev ProcessEvent) {
	switch {
	case ev.Kind == EventError:
		s.finish(ctx, schema.OutcomeError, ev.Code, errors.New(ev.Message))
	case s.killRequested:
		s.finish(ctx, schema.OutcomeKilled, ev.Code, nil)
	case ev.Code == 0:
		s.finish(ctx, schema.OutcomeSuccess, 0, nil)
	default:
		s.finish(ctx, schema.OutcomeFailure, ev.Code, nil)
	}
}

func (s *Session) finish(ctx context.Context, outcome schema.Outcome, code int, err error) {
	now := s.deps.Now()
	s.lastDuration = now.Sub(s.startedAt)
	s.lastOutcome = outcome
	s.lastCode = code
	s.state = RunIdle
	s.handle = nil
	s.events = nil
	s.killRequested = false
	if err != nil {
		s.lastErr = err
	}
	s.history.Append(schema.HistoryEntry{
		Spec:     s.current,
		At:       s.startedAt,
		Outcome:  outcome,
		Duration: s.lastDuration.Milliseconds(),
	})
	s.status = describeOutcome(outcome, code, s.lastDuration, err)
	s.log.Info("session run finished", "outcome", outcome, "exit_code", code, "duration_ms", s.lastDuration.Milliseconds())
	s.persist()

	if s.pending != nil {
		next := *s.pending
		s.pending = nil
		if err := s.start(ctx, next); err != nil {
			s.log.Warn("session pending run failed", "spec", next.Summary(), "err", err)
		}
	}
}

func describeOutcome(outcome schema.Outcome, code int, d time.Duration, err error) string {
	elapsed := d.Round(100 * time.Millisecond)
	switch outcome {
	case schema.OutcomeSuccess:
		return fmt.Sprintf("success in %s", elapsed)
	case schema.OutcomeKilled:
		return fmt.Sprintf("killed after %s", elapsed)
	case schema.OutcomeFailure:
		return fmt.Sprintf("failed (exit %d) in %s", code, elapsed)
	default:
		if err != nil {
			return "error: " + err.Error()
		}
		return "error"
	}
}

// Output returns the visible output window and remembers the viewport height.
func (s *Session) Output(limit int) BufferView {
	if limit > 0 {
		s.viewHeight = limit
	}
	return s.buf.Snapshot(limit)
}

// Lines returns every stored output line.
func (s *Session) Lines() []OutputLine {
	return append([]OutputLine(nil), s.buf.Lines()...)
}

// Scroll moves the output view; positive delta scrolls towards older lines.
func (s *Session) Scroll(delta int) {
	s.buf.Scroll(delta, s.viewHeight)
}

// ScrollTop moves the output view to the oldest line.
func (s *Session) ScrollTop() {
	s.buf.Scroll(len(s.buf.Lines()), s.viewHeight)
}

// ScrollBottom follows the newest output.
func (s *Session) ScrollBottom() {
	s.buf.ResetScroll()
}

// Search returns the active search, or nil.
func (s *Session) Search() *SearchState { return s.search }

// UpdateSearch computes matches for query over the whole buffer. Live searches
// are extended as lines arrive. On an invalid pattern the prior search is kept.
func (s *Session) UpdateSearch(query string, live bool) error {
	state, err := NewSearchState(query, s.buf.Lines(), live)
	if err != nil {
		return err
	}
	s.search = state
	s.jumpToMatch()
	return nil
}

// ConfirmSearch fixes the search on query.
func (s *Session) ConfirmSearch(query string) error {
	if s.search != nil && s.search.Query == query {
		s.search.Live = false
		return nil
	}
	return s.UpdateSearch(query, false)
}

// ClearSearch drops the search state.
func (s *Session) ClearSearch() {
	s.search = nil
}

// NextMatch moves to the following match and scrolls it into view.
func (s *Session) NextMatch() {
	s.search.Next()
	s.jumpToMatch()
}

// PrevMatch moves to the preceding match and scrolls it into view.
func (s *Session) PrevMatch() {
	s.search.Previous()
	s.jumpToMatch()
}

func (s *Session) jumpToMatch() {
	m, ok := s.search.Current()
	if !ok {
		return
	}
	if pos, ok := s.buf.Position(m.LineIndex); ok {
		s.buf.ScrollTo(pos, s.viewHeight)
	}
}

// Focus returns the focused pane.
func (s *Session) Focus() Focus { return s.focus }

// FocusNext moves focus forward in the ring.
func (s *Session) FocusNext() { s.focus = s.focus.Next() }

// FocusPrev moves focus backward in the ring.
func (s *Session) FocusPrev() { s.focus = s.focus.Prev() }

// SetFocus focuses a pane directly.
func (s *Session) SetFocus(f Focus) {
	if f >= 0 && f < focusCount {
		s.focus = f
	}
}

// Popup returns the open popup, or nil.
func (s *Session) Popup() Popup { return s.popup }

// OpenPopup shows p, replacing any open popup. Focus is kept for restore.
func (s *Session) OpenPopup(p Popup) {
	if p == nil {
		s.DismissPopup()
		return
	}
	if s.popup == nil {
		s.savedFocus = s.focus
	}
	s.popup = p
}

// DismissPopup closes the popup and restores the prior focus.
func (s *Session) DismissPopup() {
	if s.popup == nil {
		return
	}
	s.popup = nil
	s.focus = s.savedFocus
}

// Modules returns the project's modules.
func (s *Session) Modules() []schema.Module { return s.project.Modules }

// ModuleCursor returns the module pane cursor.
func (s *Session) ModuleCursor() int { return s.moduleCursor }

// MoveModule moves the module cursor; the cursor is the selected module.
func (s *Session) MoveModule(delta int) {
	s.moduleCursor = MoveCursor(s.moduleCursor, delta, len(s.project.Modules))
	s.persist()
}

// SelectedModule returns the module the next run targets.
func (s *Session) SelectedModule() string {
	if s.moduleCursor < 0 || s.moduleCursor >= len(s.project.Modules) {
		return schema.RootModule
	}
	return s.project.Modules[s.moduleCursor].Name
}

// Profiles returns the project's profiles.
func (s *Session) Profiles() []string { return s.project.Profiles }

// ProfileCursor returns the profile pane cursor.
func (s *Session) ProfileCursor() int { return s.profileCursor }

// MoveProfile moves the profile cursor.
func (s *Session) MoveProfile(delta int) {
	s.profileCursor = MoveCursor(s.profileCursor, delta, len(s.project.Profiles))
}

// ToggleProfile flips the profile under the cursor.
func (s *Session) ToggleProfile() {
	if s.profileCursor < 0 || s.profileCursor >= len(s.project.Profiles) {
		return
	}
	name := s.project.Profiles[s.profileCursor]
	s.profiles[name] = !s.profiles[name]
	s.persist()
}

// ProfileEnabled reports whether a profile is toggled on.
func (s *Session) ProfileEnabled(name string) bool { return s.profiles[name] }

// Flags returns the configured flags.
func (s *Session) Flags() []schema.Flag { return s.deps.Config.Flags }

// FlagCursor returns the flag pane cursor.
func (s *Session) FlagCursor() int { return s.flagCursor }

// MoveFlag moves the flag cursor.
func (s *Session) MoveFlag(delta int) {
	s.flagCursor = MoveCursor(s.flagCursor, delta, len(s.deps.Config.Flags))
}

// ToggleFlag flips the flag under the cursor.
func (s *Session) ToggleFlag() {
	flags := s.deps.Config.Flags
	if s.flagCursor < 0 || s.flagCursor >= len(flags) {
		return
	}
	name := flags[s.flagCursor].Name
	s.flags[name] = !s.flags[name]
	s.persist()
}

// FlagEnabled reports whether a flag is toggled on.
func (s *Session) FlagEnabled(name string) bool { return s.flags[name] }

// SpecFor builds a run spec for goals from the current selections.
func (s *Session) SpecFor(goals ...string) schema.RunSpec {
	spec := schema.RunSpec{
		Goals:  append([]string(nil), goals...),
		Module: s.SelectedModule(),
	}
	for _, p := range s.project.Profiles {
		if s.profiles[p] {
			spec.Profiles = append(spec.Profiles, p)
		}
	}
	for _, f := range s.deps.Config.Flags {
		if s.flags[f.Name] {
			spec.Flags = append(spec.Flags, strings.Fields(f.Arg)...)
		}
	}
	return spec
}

// StarterSpec builds a run spec that launches a starter with current profiles and flags.
func (s *Session) StarterSpec(st schema.Starter) schema.RunSpec {
	spec := s.SpecFor()
	spec.Module = st.Module
	spec.MainClass = st.MainClass
	return spec
}

// History returns past runs newest first.
func (s *Session) History() []schema.HistoryEntry { return s.history.Recent() }

// Favorites returns saved specs.
func (s *Session) Favorites() []schema.Favorite {
	return append([]schema.Favorite(nil), s.favorites...)
}

// AddFavorite saves spec under name, replacing a favorite with the same name.
func (s *Session) AddFavorite(name string, spec schema.RunSpec) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = spec.Summary()
	}
	spec = schema.NormalizeRunSpec(spec)
	for i := range s.favorites {
		if s.favorites[i].Name == name {
			s.favorites[i].Spec = spec
			s.persist()
			return
		}
	}
	s.favorites = append(s.favorites, schema.Favorite{Name: name, Spec: spec})
	s.persist()
}

// RemoveFavorite deletes the favorite at i.
func (s *Session) RemoveFavorite(i int) {
	if i < 0 || i >= len(s.favorites) {
		return
	}
	s.favorites = append(s.favorites[:i], s.favorites[i+1:]...)
	s.persist()
}

// Starters returns saved starters.
func (s *Session) Starters() []schema.Starter {
	return append([]schema.Starter(nil), s.starters...)
}

// SaveStarter stores st unless an identical main class is already saved.
func (s *Session) SaveStarter(st schema.Starter) {
	for _, existing := range s.starters {
		if existing.MainClass == st.MainClass && existing.Module == st.Module {
			return
		}
	}
	if st.Name == "" {
		st.Name = st.MainClass
	}
	if len(s.starters) == 0 {
		st.Default = true
	}
	s.starters = append(s.starters, st)
	s.persist()
}

// RemoveStarter deletes the starter at i.
func (s *Session) RemoveStarter(i int) {
	if i < 0 || i >= len(s.starters) {
		return
	}
	wasDefault := s.starters[i].Default
	s.starters = append(s.starters[:i], s.starters[i+1:]...)
	if wasDefault && len(s.starters) > 0 {
		s.starters[0].Default = true
	}
	s.persist()
}

// SetDefaultStarter marks the starter at i as default.
func (s *Session) SetDefaultStarter(i int) {
	if i < 0 || i >= len(s.starters) {
		return
	}
	for j := range s.starters {
		s.starters[j].Default = j == i
	}
	s.persist()
}

// DefaultStarter returns the default starter, if any.
func (s *Session) DefaultStarter() (schema.Starter, bool) {
	for _, st := range s.starters {
		if st.Default {
			return st, true
		}
	}
	return schema.Starter{}, false
}

// WatchEnabled reports whether file changes trigger re-runs.
func (s *Session) WatchEnabled() bool { return s.watchEnabled }

// SetWatch turns file-change re-runs on or off.
func (s *Session) SetWatch(ctx context.Context, on bool) error {
	if on == s.watchEnabled {
		return nil
	}
	if !on {
		if s.watch != nil {
			if err := s.watch.Close(); err != nil {
				s.log.Warn("session watch close failed", "err", err)
			}
			s.watch = nil
		}
		s.watchEnabled = false
		s.persist()
		return nil
	}
	if s.deps.Watch == nil {
		return errors.New("file watching is not available")
	}
	src, err := s.deps.Watch(ctx, s.project.Root)
	if err != nil {
		return err
	}
	s.watch = src
	s.watchEnabled = true
	s.persist()
	return nil
}

// PollWatch re-runs the last spec when the watcher reports a debounced change.
func (s *Session) PollWatch(ctx context.Context) bool {
	if s.watch == nil || !s.watch.Poll() {
		return false
	}
	spec, ok := s.LastSpec()
	if !ok {
		return false
	}
	s.log.Info("session watch triggered", "spec", spec.Summary())
	if err := s.Run(ctx, spec); err != nil {
		s.log.Warn("session watch run failed", "err", err)
	}
	return true
}

// Close cancels any live process and releases the watcher.
func (s *Session) Close() {
	if s.handle != nil {
		if err := s.handle.Cancel(); err != nil {
			s.log.Warn("session close kill failed", "err", err)
		}
		if events := s.events; events != nil {
			go func() {
				for range events {
				}
			}()
		}
	}
	s.pending = nil
	s.handle = nil
	s.events = nil
	s.state = RunIdle
	if s.watch != nil {
		_ = s.watch.Close()
		s.watch = nil
	}
	s.persist()
	s.log.Info("session closed")
}

func (s *Session) restore() {
	s.watchEnabled = s.deps.WatchDefault
	if s.deps.Store == nil {
		return
	}
	state, ok, err := s.deps.Store.LoadProject(s.project.Root)
	if err != nil {
		s.log.Warn("session state load failed", "err", err)
		return
	}
	if !ok {
		return
	}
	s.history = newHistoryFromPersisted(state.History)
	s.favorites = append([]schema.Favorite(nil), state.Favorites...)
	s.starters = append([]schema.Starter(nil), state.Starters...)
	for i, m := range s.project.Modules {
		if m.Name == state.Selections.Module {
			s.moduleCursor = i
		}
	}
	for _, p := range state.Selections.Profiles {
		s.profiles[p] = true
	}
	for _, f := range state.Selections.Flags {
		s.flags[f] = true
	}
	s.watchEnabled = state.Watch
}

func (s *Session) snapshot() schema.ProjectState {
	state := schema.ProjectState{
		History:   s.history.Entries(),
		Favorites: s.Favorites(),
		Starters:  s.Starters(),
		Selections: schema.Selections{
			Module: s.SelectedModule(),
		},
		Watch: s.watchEnabled,
	}
	for _, p := range s.project.Profiles {
		if s.profiles[p] {
			state.Selections.Profiles = append(state.Selections.Profiles, p)
		}
	}
	for _, f := range s.deps.Config.Flags {
		if s.flags[f.Name] {
			state.Selections.Flags = append(state.Selections.Flags, f.Name)
		}
	}
	return state
}

func (s *Session) persist() {
	if s.deps.Store == nil {
		return
	}
	if err := s.deps.Store.SaveProject(s.project.Root, s.snapshot()); err != nil {
		s.log.Warn("session state save failed", "err", err)
	}
}
