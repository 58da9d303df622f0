package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pkt.systems/mavdeck/schema"
)

type sessionFixture struct {
	session *Session
	sup     *fakeSupervisor
	store   *memStore
	clock   *fakeClock
	changes *fakeChanges
}

func newSessionFixture(t *testing.T, handles ...*fakeHandle) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		sup:     &fakeSupervisor{handles: handles},
		store:   newMemStore(),
		clock:   &fakeClock{now: time.Unix(1000, 0)},
		changes: &fakeChanges{},
	}
	deps := SessionDeps{
		Supervisor: f.sup,
		Planner:    fakePlanner{},
		Store:      f.store,
		Watch: func(context.Context, string) (ChangeSource, error) {
			return f.changes, nil
		},
		Config: schema.ServiceConfig{
			Flags: []schema.Flag{{Name: "offline", Arg: "-o"}, {Name: "skip", Arg: "-DskipTests"}},
		},
		Now: f.clock.Now,
	}.withDefaults()
	f.session = newSession(context.Background(), demoProject(), deps)
	return f
}

func TestSessionRunStreamsAndFinishes(t *testing.T) {
	h := newFakeHandle(42)
	f := newSessionFixture(t, h)
	s := f.session
	ctx := context.Background()

	if err := s.Run(ctx, schema.RunSpec{Goals: []string{"test"}, Module: "module-a"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.State() != RunRunning || s.Pid() != 42 {
		t.Fatalf("expected running pid 42, got %s pid %d", s.State(), s.Pid())
	}
	if got := strings.Join(f.sup.requests[0].Args, " "); got != "module-a test" {
		t.Fatalf("unexpected args %q", got)
	}

	h.line("\x1b[1m[INFO] Building\x1b[0m")
	h.line("   ")
	h.line("[INFO] Tests run: 3")
	if !s.Drain(ctx) {
		t.Fatalf("expected drain to report changes")
	}
	if got := outputTexts(s); got != "[INFO] Building|[INFO] Tests run: 3" {
		t.Fatalf("unexpected output %q", got)
	}
	if s.State() != RunRunning {
		t.Fatalf("expected running before terminal event")
	}

	f.clock.Advance(1500 * time.Millisecond)
	h.exit(0)
	s.Drain(ctx)
	if s.State() != RunIdle {
		t.Fatalf("expected idle after exit")
	}
	if s.LastOutcome() != schema.OutcomeSuccess {
		t.Fatalf("expected success, got %q", s.LastOutcome())
	}
	if s.LastDuration() != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s duration, got %s", s.LastDuration())
	}
	if !strings.HasPrefix(s.Status(), "success") {
		t.Fatalf("unexpected status %q", s.Status())
	}
	history := s.History()
	if len(history) != 1 || history[0].Outcome != schema.OutcomeSuccess {
		t.Fatalf("expected one history entry, got %+v", history)
	}
	if persisted := f.store.states["/src/demo"]; len(persisted.History) != 1 {
		t.Fatalf("expected history persisted, got %+v", persisted)
	}
	if s.Drain(ctx) {
		t.Fatalf("expected idle drain to be a no-op")
	}
}

func TestSessionFailureOutcome(t *testing.T) {
	h := newFakeHandle(7)
	f := newSessionFixture(t, h)
	ctx := context.Background()
	if err := f.session.Run(ctx, schema.RunSpec{Goals: []string{"verify"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	h.exit(1)
	f.session.Drain(ctx)
	if f.session.LastOutcome() != schema.OutcomeFailure || f.session.LastExitCode() != 1 {
		t.Fatalf("expected failure exit 1, got %q %d", f.session.LastOutcome(), f.session.LastExitCode())
	}
}

func TestSessionKillIdleIsNoop(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session
	before := s.Status()
	if err := s.Kill(); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if s.State() != RunIdle || s.Status() != before || s.LastOutcome() != schema.OutcomeNone {
		t.Fatalf("expected idle kill to leave state unchanged")
	}
}

func TestSessionKillRecordsKilledOutcome(t *testing.T) {
	h := newFakeHandle(9)
	f := newSessionFixture(t, h)
	s := f.session
	ctx := context.Background()
	if err := s.Run(ctx, schema.RunSpec{Goals: []string{"spring-boot:run"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := s.Kill(); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if h.cancels != 1 {
		t.Fatalf("expected one cancel, got %d", h.cancels)
	}
	if s.State() != RunRunning {
		t.Fatalf("expected running until terminal event")
	}
	h.exit(143)
	s.Drain(ctx)
	if s.LastOutcome() != schema.OutcomeKilled {
		t.Fatalf("expected killed outcome, got %q", s.LastOutcome())
	}
}

func TestSessionKillRequestedCleanExitIsKilled(t *testing.T) {
	h := newFakeHandle(9)
	f := newSessionFixture(t, h)
	s := f.session
	ctx := context.Background()
	if err := s.Run(ctx, schema.RunSpec{Goals: []string{"spring-boot:run"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := s.Kill(); err != nil {
		t.Fatalf("kill: %v", err)
	}
	h.exit(0)
	s.Drain(ctx)
	if s.LastOutcome() != schema.OutcomeKilled {
		t.Fatalf("expected killed outcome for a graceful exit after kill, got %q", s.LastOutcome())
	}
	if !strings.HasPrefix(s.Status(), "killed") {
		t.Fatalf("expected killed status, got %q", s.Status())
	}
}

func TestSessionKillFailureKeepsState(t *testing.T) {
	h := newFakeHandle(9)
	h.cancelErr = errors.New("operation not permitted")
	f := newSessionFixture(t, h)
	s := f.session
	if err := s.Run(context.Background(), schema.RunSpec{Goals: []string{"test"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	err := s.Kill()
	if !errors.Is(err, schema.ErrKill) {
		t.Fatalf("expected kill error, got %v", err)
	}
	if s.State() != RunRunning {
		t.Fatalf("expected state unchanged after kill failure")
	}
}

func TestSessionRunWhileRunningQueuesPending(t *testing.T) {
	first := newFakeHandle(1)
	second := newFakeHandle(2)
	f := newSessionFixture(t, first, second)
	s := f.session
	ctx := context.Background()

	if err := s.Run(ctx, schema.RunSpec{Goals: []string{"test"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	first.line("old output")
	s.Drain(ctx)
	if err := s.Run(ctx, schema.RunSpec{Goals: []string{"install"}}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.cancels != 1 {
		t.Fatalf("expected the live process to be cancelled")
	}
	pending, ok := s.Pending()
	if !ok || pending.Goals[0] != "install" {
		t.Fatalf("expected pending install, got %+v %v", pending, ok)
	}
	if want := "restarting: " + pending.Summary(); s.Status() != want {
		t.Fatalf("expected status %q, got %q", want, s.Status())
	}
	if len(f.sup.requests) != 1 {
		t.Fatalf("expected no spawn before terminal event")
	}
	if err := s.Run(ctx, schema.RunSpec{Goals: []string{"package"}}); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if first.cancels != 1 {
		t.Fatalf("expected one cancel while stopping, got %d", first.cancels)
	}

	first.exit(143)
	s.Drain(ctx)
	if len(f.sup.requests) != 2 {
		t.Fatalf("expected pending spec to start, got %d requests", len(f.sup.requests))
	}
	if s.Pid() != 2 || s.Current().Goals[0] != "package" {
		t.Fatalf("expected latest pending spec running, got %+v pid %d", s.Current(), s.Pid())
	}
	if outputTexts(s) != "" {
		t.Fatalf("expected buffer cleared for the new run, got %q", outputTexts(s))
	}
	if _, ok := s.Pending(); ok {
		t.Fatalf("expected pending cleared")
	}
}

func TestSessionPendingRunSpawnFailureSurfaces(t *testing.T) {
	first := newFakeHandle(1)
	f := newSessionFixture(t, first)
	s := f.session
	ctx := context.Background()
	if err := s.Run(ctx, schema.RunSpec{Goals: []string{"test"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := s.Run(ctx, schema.RunSpec{Goals: []string{"install"}}); err != nil {
		t.Fatalf("queue run: %v", err)
	}
	first.exit(143)
	s.Drain(ctx)
	if len(f.sup.requests) != 2 {
		t.Fatalf("expected the pending spec to be attempted, got %d requests", len(f.sup.requests))
	}
	if s.State() != RunIdle {
		t.Fatalf("expected idle after failed pending start, got %v", s.State())
	}
	if !errors.Is(s.Err(), schema.ErrSpawn) {
		t.Fatalf("expected spawn error, got %v", s.Err())
	}
	if !strings.HasPrefix(s.Status(), "error: ") {
		t.Fatalf("expected error status, got %q", s.Status())
	}
	if _, ok := s.Pending(); ok {
		t.Fatalf("expected pending cleared")
	}
}

func TestSessionChannelClosedWithoutTerminal(t *testing.T) {
	h := newFakeHandle(5)
	f := newSessionFixture(t, h)
	s := f.session
	ctx := context.Background()
	if err := s.Run(ctx, schema.RunSpec{Goals: []string{"test"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	h.line("partial")
	close(h.events)
	s.Drain(ctx)
	if s.State() != RunIdle || s.LastOutcome() != schema.OutcomeError {
		t.Fatalf("expected idle error, got %s %q", s.State(), s.LastOutcome())
	}
	if !errors.Is(s.Err(), schema.ErrChannel) {
		t.Fatalf("expected channel error, got %v", s.Err())
	}
	if outputTexts(s) != "partial" {
		t.Fatalf("expected partial output kept, got %q", outputTexts(s))
	}
}

func TestSessionSpawnErrorSurfacesAsStatus(t *testing.T) {
	f := newSessionFixture(t)
	f.sup.err = errors.New("exec: \"mvn\": executable file not found in $PATH")
	s := f.session
	err := s.Run(context.Background(), schema.RunSpec{Goals: []string{"test"}})
	if !errors.Is(err, schema.ErrSpawn) {
		t.Fatalf("expected spawn error, got %v", err)
	}
	if s.State() != RunIdle {
		t.Fatalf("expected idle after spawn failure")
	}
	if !strings.Contains(s.Status(), "executable file not found") {
		t.Fatalf("expected status to carry error, got %q", s.Status())
	}
}

func TestSessionEmptyRunRejected(t *testing.T) {
	f := newSessionFixture(t)
	if err := f.session.Run(context.Background(), schema.RunSpec{Goals: []string{" "}}); !errors.Is(err, schema.ErrEmptyRun) {
		t.Fatalf("expected empty run error, got %v", err)
	}
}

func TestSessionLiveSearchExtendsAsLinesArrive(t *testing.T) {
	h := newFakeHandle(3)
	f := newSessionFixture(t, h)
	s := f.session
	ctx := context.Background()
	if err := s.Run(ctx, schema.RunSpec{Goals: []string{"test"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	h.line("[ERROR] first")
	s.Drain(ctx)
	if err := s.UpdateSearch("error", true); err != nil {
		t.Fatalf("search: %v", err)
	}
	h.line("[INFO] ok")
	h.line("[ERROR] second")
	s.Drain(ctx)
	if n := len(s.Search().Matches()); n != 2 {
		t.Fatalf("expected 2 live matches, got %d", n)
	}
	if err := s.ConfirmSearch("error"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	h.line("[ERROR] third")
	s.Drain(ctx)
	if n := len(s.Search().Matches()); n != 2 {
		t.Fatalf("expected confirmed search not to extend, got %d", n)
	}
	if err := s.UpdateSearch("([", true); !errors.Is(err, schema.ErrPattern) {
		t.Fatalf("expected pattern error, got %v", err)
	}
	if s.Search() == nil || s.Search().Query != "error" {
		t.Fatalf("expected prior search kept after invalid pattern")
	}
	s.NextMatch()
	if s.Search().Cursor() != 1 {
		t.Fatalf("expected cursor 1, got %d", s.Search().Cursor())
	}
	s.ClearSearch()
	if s.Search() != nil {
		t.Fatalf("expected search cleared")
	}
}

func TestSessionPopupRestoresFocus(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session
	s.SetFocus(FocusFlags)
	s.OpenPopup(&HistoryPopup{})
	s.OpenPopup(&HelpPopup{})
	if s.Focus() != FocusFlags {
		t.Fatalf("expected popup not to move focus")
	}
	if _, ok := s.Popup().(*HelpPopup); !ok {
		t.Fatalf("expected help popup, got %T", s.Popup())
	}
	s.DismissPopup()
	if s.Popup() != nil || s.Focus() != FocusFlags {
		t.Fatalf("expected focus restored, got %s", s.Focus())
	}
}

func TestSessionSelectionsBuildSpecAndPersist(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session
	s.MoveModule(1)
	s.MoveProfile(1)
	s.ToggleProfile()
	s.ToggleFlag()
	s.MoveFlag(1)
	s.ToggleFlag()
	spec := s.SpecFor("clean", "install")
	if spec.Module != "module-a" {
		t.Fatalf("expected module-a, got %q", spec.Module)
	}
	if strings.Join(spec.Profiles, ",") != "prod" {
		t.Fatalf("expected prod profile, got %v", spec.Profiles)
	}
	if strings.Join(spec.Flags, " ") != "-o -DskipTests" {
		t.Fatalf("unexpected flags %v", spec.Flags)
	}

	reopened := newSession(context.Background(), demoProject(), s.deps)
	if reopened.SelectedModule() != "module-a" || !reopened.ProfileEnabled("prod") || !reopened.FlagEnabled("skip") {
		t.Fatalf("expected selections restored from store")
	}
}

func TestSessionFavoritesAndStarters(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session
	spec := schema.RunSpec{Goals: []string{"verify"}}
	s.AddFavorite("", spec)
	s.AddFavorite("nightly", spec)
	s.AddFavorite("nightly", schema.RunSpec{Goals: []string{"deploy"}})
	favs := s.Favorites()
	if len(favs) != 2 || favs[1].Spec.Goals[0] != "deploy" {
		t.Fatalf("unexpected favorites %+v", favs)
	}
	s.RemoveFavorite(0)
	if len(s.Favorites()) != 1 {
		t.Fatalf("expected favorite removed")
	}

	s.SaveStarter(schema.Starter{Module: "module-a", MainClass: "com.example.App"})
	s.SaveStarter(schema.Starter{Module: "module-a", MainClass: "com.example.App"})
	s.SaveStarter(schema.Starter{Module: "module-b", MainClass: "com.example.Worker"})
	if len(s.Starters()) != 2 {
		t.Fatalf("expected duplicate starter ignored, got %+v", s.Starters())
	}
	if def, ok := s.DefaultStarter(); !ok || def.MainClass != "com.example.App" {
		t.Fatalf("expected first starter default, got %+v", def)
	}
	s.SetDefaultStarter(1)
	if def, _ := s.DefaultStarter(); def.MainClass != "com.example.Worker" {
		t.Fatalf("expected worker default, got %+v", def)
	}
	s.RemoveStarter(1)
	if def, ok := s.DefaultStarter(); !ok || def.MainClass != "com.example.App" {
		t.Fatalf("expected default to move after removal, got %+v", def)
	}
	starterSpec := s.StarterSpec(schema.Starter{Module: "module-b", MainClass: "com.example.Worker"})
	if starterSpec.Module != "module-b" || starterSpec.MainClass != "com.example.Worker" {
		t.Fatalf("unexpected starter spec %+v", starterSpec)
	}
}

func TestSessionWatchRerunsLastSpec(t *testing.T) {
	first := newFakeHandle(1)
	second := newFakeHandle(2)
	f := newSessionFixture(t, first, second)
	s := f.session
	ctx := context.Background()
	if err := s.SetWatch(ctx, true); err != nil {
		t.Fatalf("watch: %v", err)
	}
	f.changes.due = true
	if s.PollWatch(ctx) {
		t.Fatalf("expected no re-run before any run")
	}
	if err := s.Run(ctx, schema.RunSpec{Goals: []string{"test"}, Module: "module-b"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	first.exit(0)
	s.Drain(ctx)

	f.changes.due = true
	if !s.PollWatch(ctx) {
		t.Fatalf("expected watch to trigger")
	}
	if len(f.sup.requests) != 2 || strings.Join(f.sup.requests[1].Args, " ") != "module-b test" {
		t.Fatalf("expected last spec re-run, got %+v", f.sup.requests)
	}
	if err := s.SetWatch(ctx, false); err != nil {
		t.Fatalf("unwatch: %v", err)
	}
	if !f.changes.closed {
		t.Fatalf("expected change source closed")
	}
}

func TestSessionCloseCancelsProcess(t *testing.T) {
	h := newFakeHandle(11)
	f := newSessionFixture(t, h)
	s := f.session
	if err := s.Run(context.Background(), schema.RunSpec{Goals: []string{"test"}}); err != nil {
		t.Fatalf("run: %v", err)
	}
	s.Close()
	if h.cancels != 1 {
		t.Fatalf("expected close to cancel the process")
	}
	if s.State() != RunIdle {
		t.Fatalf("expected idle after close")
	}
}

func TestSessionWatchDefaultAppliesWithoutSavedState(t *testing.T) {
	changes := &fakeChanges{}
	store := newMemStore()
	deps := SessionDeps{
		Planner: fakePlanner{},
		Store:   store,
		Watch: func(context.Context, string) (ChangeSource, error) {
			return changes, nil
		},
		WatchDefault: true,
	}.withDefaults()
	ctx := context.Background()

	fresh := newSession(ctx, demoProject(), deps)
	if !fresh.WatchEnabled() {
		t.Fatalf("expected watch on for a project without saved state")
	}
	if err := fresh.SetWatch(ctx, false); err != nil {
		t.Fatalf("unwatch: %v", err)
	}
	fresh.Close()

	reopened := newSession(ctx, demoProject(), deps)
	defer reopened.Close()
	if reopened.WatchEnabled() {
		t.Fatalf("expected saved watch toggle to win over the default")
	}
}
