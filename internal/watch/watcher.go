// Package watch turns filesystem events below a project root into debounced
// re-run triggers.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pkt.systems/mavdeck/internal/logx"
	"pkt.systems/mavdeck/schema"
	"pkt.systems/pslog"
)

const changeBuffer = 64

// Config controls a Watcher.
type Config struct {
	Patterns []string
	Quiet    time.Duration
	Now      func() time.Time
}

// Watcher watches a project tree. Poll is meant for a single consumer loop;
// the fsnotify reader runs on its own goroutine and only hands over paths.
type Watcher struct {
	root      string
	fsw       *fsnotify.Watcher
	matcher   *Matcher
	debouncer *Debouncer
	changes   chan string
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	log       pslog.Logger
}

// New starts watching root recursively.
func New(ctx context.Context, root string, cfg Config) (*Watcher, error) {
	if cfg.Quiet <= 0 {
		cfg.Quiet = schema.DefaultDebounce
	}
	matcher, err := NewMatcher(root, cfg.Patterns)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:      root,
		fsw:       fsw,
		matcher:   matcher,
		debouncer: NewDebouncer(cfg.Quiet, cfg.Now),
		changes:   make(chan string, changeBuffer),
		done:      make(chan struct{}),
		log:       logx.WithProject(logx.Ctx(ctx), root),
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.wg.Add(1)
	go w.loop()
	w.log.Info("watch started", "quiet_ms", cfg.Quiet.Milliseconds())
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr == nil && w.matcher.Ignored(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn("watch add failed", "path", path, "err", err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	if ev.Has(fsnotify.Create) && !w.matcher.Ignored(rel) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.log.Warn("watch add failed", "path", ev.Name, "err", err)
			}
		}
	}
	if !w.matcher.Relevant(rel) {
		return
	}
	w.log.Trace("watch change", "path", rel, "op", ev.Op.String())
	select {
	case w.changes <- rel:
	default:
	}
}

// Poll records pending changes and reports whether a re-run is due.
func (w *Watcher) Poll() bool {
	for {
		select {
		case <-w.changes:
			w.debouncer.Record()
		default:
			return w.debouncer.CheckChanges()
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
		w.log.Info("watch stopped")
	})
	return err
}
