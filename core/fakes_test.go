package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"pkt.systems/mavdeck/schema"
)

type fakeHandle struct {
	pid       int
	started   time.Time
	events    chan ProcessEvent
	cancelErr error
	cancels   int
}

func newFakeHandle(pid int) *fakeHandle {
	return &fakeHandle{pid: pid, started: time.Unix(1000, 0), events: make(chan ProcessEvent, 64)}
}

func (h *fakeHandle) Pid() int                    { return h.pid }
func (h *fakeHandle) Started() time.Time          { return h.started }
func (h *fakeHandle) Events() <-chan ProcessEvent { return h.events }

func (h *fakeHandle) Cancel() error {
	if h.cancelErr != nil {
		return h.cancelErr
	}
	h.cancels++
	return nil
}

func (h *fakeHandle) line(text string) {
	h.events <- ProcessEvent{Kind: EventLine, Line: text}
}

func (h *fakeHandle) exit(code int) {
	h.events <- ProcessEvent{Kind: EventCompleted, Code: code}
	close(h.events)
}

type fakeSupervisor struct {
	handles  []*fakeHandle
	requests []RunRequest
	err      error
}

func (s *fakeSupervisor) Start(_ context.Context, req RunRequest) (ProcessHandle, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.requests = append(s.requests, req)
	if len(s.handles) == 0 {
		return nil, errors.New("no handle queued")
	}
	h := s.handles[0]
	s.handles = s.handles[1:]
	return h, nil
}

type fakePlanner struct{}

func (fakePlanner) Plan(project schema.Project, spec schema.RunSpec) (schema.Command, error) {
	args := []string{spec.Module}
	args = append(args, spec.Profiles...)
	args = append(args, spec.Flags...)
	args = append(args, spec.Goals...)
	return schema.Command{Dir: project.Root, Executable: "mvn", Args: args}, nil
}

type memStore struct {
	mu     sync.Mutex
	states map[string]schema.ProjectState
	saves  int
}

func newMemStore() *memStore {
	return &memStore{states: map[string]schema.ProjectState{}}
}

func (m *memStore) LoadProject(root string) (schema.ProjectState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[root]
	return state, ok, nil
}

func (m *memStore) SaveProject(root string, state schema.ProjectState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[root] = state
	m.saves++
	return nil
}

type fakeChanges struct {
	due    bool
	closed bool
}

func (f *fakeChanges) Poll() bool {
	due := f.due
	f.due = false
	return due
}

func (f *fakeChanges) Close() error {
	f.closed = true
	return nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func demoProject() schema.Project {
	return schema.Project{
		Root:     "/src/demo",
		Name:     "demo",
		Profiles: []string{"dev", "prod"},
		Modules: []schema.Module{
			{Name: ".", Dir: "/src/demo"},
			{Name: "module-a", Dir: "/src/demo/module-a"},
			{Name: "module-b", Dir: "/src/demo/module-b"},
		},
	}
}

func outputTexts(s *Session) string {
	var parts []string
	for _, line := range s.Lines() {
		parts = append(parts, line.Text)
	}
	return strings.Join(parts, "|")
}
