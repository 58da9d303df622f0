package persist

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"pkt.systems/mavdeck/schema"
	"pkt.systems/pslog"
)

const (
	projectsDir = "projects"
	prefsFile   = "prefs.json"
	maxRecent   = 20
)

// Store persists project state and preferences to disk.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore constructs a persistent store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a persistent store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, projectsDir), 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// LoadProject reads a project's state.
func (s *Store) LoadProject(root string) (schema.ProjectState, bool, error) {
	var state schema.ProjectState
	ok, err := s.load(s.pathForProject(root), &state)
	if err != nil || !ok {
		return schema.ProjectState{}, ok, err
	}
	if s.log != nil {
		s.log.Debug("state load ok", "project", root, "history", len(state.History))
	}
	return state, true, nil
}

// SaveProject writes a project's state.
func (s *Store) SaveProject(root string, state schema.ProjectState) error {
	return s.save(s.pathForProject(root), state)
}

// LoadPrefs reads global preferences.
func (s *Store) LoadPrefs() (schema.Prefs, bool, error) {
	var prefs schema.Prefs
	ok, err := s.load(filepath.Join(s.dir, prefsFile), &prefs)
	if err != nil || !ok {
		return schema.Prefs{}, ok, err
	}
	return prefs, true, nil
}

// SavePrefs writes global preferences.
func (s *Store) SavePrefs(prefs schema.Prefs) error {
	return s.save(filepath.Join(s.dir, prefsFile), prefs)
}

// TouchRecent moves root to the front of the recent project list.
func TouchRecent(prefs schema.Prefs, root string) schema.Prefs {
	out := []string{root}
	for _, p := range prefs.RecentProjects {
		if p != root {
			out = append(out, p)
		}
	}
	if len(out) > maxRecent {
		out = out[:maxRecent]
	}
	prefs.RecentProjects = out
	return prefs
}

func (s *Store) load(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("state load miss", "path", path)
			}
			return false, nil
		}
		if s.log != nil {
			s.log.Warn("state load failed", "path", path, "err", err)
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		if s.log != nil {
			s.log.Warn("state load failed", "path", path, "err", err)
		}
		return false, err
	}
	return true, nil
}

// save writes v atomically: temp file, fsync, chmod, rename.
func (s *Store) save(path string, v any) error {
	if err := s.writeAtomic(path, v); err != nil {
		if s.log != nil {
			s.log.Warn("state save failed", "path", path, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("state save ok", "path", path)
	}
	return nil
}

func (s *Store) writeAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "state-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Store) pathForProject(root string) string {
	clean := filepath.Clean(root)
	name := sanitize(filepath.Base(clean))
	if name == "" {
		name = "project"
	}
	sum := sha256.Sum256([]byte(clean))
	return filepath.Join(s.dir, projectsDir, name+"-"+hex.EncodeToString(sum[:6])+".json")
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}
