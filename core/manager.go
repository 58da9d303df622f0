package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pkt.systems/mavdeck/internal/logx"
	"pkt.systems/mavdeck/schema"
)

// ManagerConfig wires the collaborators of a Manager.
type ManagerConfig struct {
	SessionDeps
	Discoverer Discoverer
}

// Manager owns the ordered sessions and the active index. The active index
// is -1 exactly when there are no sessions. It is not safe for concurrent use.
type Manager struct {
	deps       SessionDeps
	discoverer Discoverer
	sessions   []*Session
	active     int
}

// NewManager constructs an empty manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		deps:       cfg.SessionDeps.withDefaults(),
		discoverer: cfg.Discoverer,
		active:     -1,
	}
}

// Config returns the normalized service config.
func (m *Manager) Config() schema.ServiceConfig { return m.deps.Config }

// Discover inspects path under the discovery timeout. It does not touch
// manager state and may be called off the render loop. Results arriving
// after the deadline are discarded.
func (m *Manager) Discover(ctx context.Context, path string) (schema.Project, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return schema.Project{}, NewRunError(ErrorDiscovery, "discover", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", root)
		}
		return schema.Project{}, NewRunError(ErrorDiscovery, "discover", err)
	}
	if m.discoverer == nil {
		return schema.Project{}, NewRunError(ErrorDiscovery, "discover", errors.New("no discoverer configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, m.deps.Config.DiscoveryTimeout)
	defer cancel()

	type result struct {
		project schema.Project
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		project, err := m.discoverer.Discover(ctx, root)
		ch <- result{project: project, err: err}
	}()

	log := logx.WithProject(logx.Ctx(ctx), root)
	select {
	case <-ctx.Done():
		log.Warn("project discovery timed out", "timeout", m.deps.Config.DiscoveryTimeout.String())
		return schema.Project{}, NewRunError(ErrorDiscovery, "discover", ctx.Err())
	case res := <-ch:
		if res.err != nil {
			log.Warn("project discovery failed", "err", res.err)
			return schema.Project{}, NewRunError(ErrorDiscovery, "discover", res.err)
		}
		log.Debug("project discovered", "modules", len(res.project.Modules))
		return res.project, nil
	}
}

// AddSession appends a session for a discovered project and activates it.
func (m *Manager) AddSession(ctx context.Context, project schema.Project) *Session {
	s := newSession(ctx, project, m.deps)
	m.sessions = append(m.sessions, s)
	m.active = len(m.sessions) - 1
	return s
}

// CreateSession discovers path and opens a session for it. On failure no
// session is added.
func (m *Manager) CreateSession(ctx context.Context, path string) (*Session, error) {
	project, err := m.Discover(ctx, path)
	if err != nil {
		return nil, err
	}
	return m.AddSession(ctx, project), nil
}

// ReplaceActive swaps the active session for a new project in place.
func (m *Manager) ReplaceActive(ctx context.Context, project schema.Project) *Session {
	if m.active < 0 {
		return m.AddSession(ctx, project)
	}
	m.sessions[m.active].Close()
	s := newSession(ctx, project, m.deps)
	m.sessions[m.active] = s
	return s
}

// Sessions returns the ordered sessions.
func (m *Manager) Sessions() []*Session {
	return append([]*Session(nil), m.sessions...)
}

// Len returns the number of sessions.
func (m *Manager) Len() int { return len(m.sessions) }

// ActiveIndex returns the active index, or -1.
func (m *Manager) ActiveIndex() int { return m.active }

// Active returns the active session, or nil when there are none.
func (m *Manager) Active() *Session {
	if m.active < 0 || m.active >= len(m.sessions) {
		return nil
	}
	return m.sessions[m.active]
}

// Activate makes session i active.
func (m *Manager) Activate(i int) error {
	if i < 0 || i >= len(m.sessions) {
		return schema.ErrSessionNotFound
	}
	m.active = i
	return nil
}

// Next activates the following session, wrapping around.
func (m *Manager) Next() {
	m.cycle(1)
}

// Prev activates the preceding session, wrapping around.
func (m *Manager) Prev() {
	m.cycle(-1)
}

func (m *Manager) cycle(step int) {
	n := len(m.sessions)
	if n == 0 {
		return
	}
	m.active = ((m.active+step)%n + n) % n
}

// Close closes session i, cancelling its process first.
func (m *Manager) Close(i int) error {
	if i < 0 || i >= len(m.sessions) {
		return schema.ErrSessionNotFound
	}
	m.sessions[i].Close()
	m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
	switch {
	case len(m.sessions) == 0:
		m.active = -1
	case m.active > i:
		m.active--
	case m.active >= len(m.sessions):
		m.active = len(m.sessions) - 1
	}
	return nil
}

// CloseActive closes the active session.
func (m *Manager) CloseActive() error {
	return m.Close(m.active)
}

// Tick drains every session and polls watchers. It returns true when any
// session changed.
func (m *Manager) Tick(ctx context.Context) bool {
	changed := false
	for _, s := range m.sessions {
		if s.Drain(ctx) {
			changed = true
		}
		if s.PollWatch(ctx) {
			changed = true
		}
	}
	return changed
}

// Roots returns the project roots of the open sessions in order.
func (m *Manager) Roots() []string {
	out := make([]string, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.project.Root)
	}
	return out
}

// Shutdown closes all sessions.
func (m *Manager) Shutdown() {
	for _, s := range m.sessions {
		s.Close()
	}
	m.sessions = nil
	m.active = -1
}
