package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pkt.systems/mavdeck/core"
	"pkt.systems/mavdeck/internal/appconfig"
	"pkt.systems/mavdeck/internal/logx"
	"pkt.systems/mavdeck/internal/mvn"
	"pkt.systems/mavdeck/internal/persist"
	"pkt.systems/mavdeck/internal/procexec"
	"pkt.systems/mavdeck/internal/watch"
	"pkt.systems/mavdeck/schema"
	"pkt.systems/mavdeck/tui"
	"pkt.systems/pslog"
)

// runtime holds the collaborators shared by every dashboard built from one
// config.
type runtime struct {
	cfg   appconfig.Config
	store *persist.Store
}

func newRuntime(cfg appconfig.Config, logger pslog.Logger) (*runtime, error) {
	store, err := persist.NewStoreWithLogger(cfg.StateDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open state dir: %w", err)
	}
	return &runtime{cfg: cfg, store: store}, nil
}

// managerConfig wires a fresh manager's engine collaborators.
func (r *runtime) managerConfig() core.ManagerConfig {
	mode, _ := schema.NormalizeLaunchMode(r.cfg.Launch.Mode)
	svc := r.cfg.ServiceConfig()
	return core.ManagerConfig{
		SessionDeps: core.SessionDeps{
			Supervisor:   procexec.New(procexec.Config{Grace: svc.KillGrace}),
			Planner:      mvn.Planner{Binary: r.cfg.Maven.Binary, PreferWrapper: r.cfg.Maven.PreferWrapper, Mode: mode},
			Store:        r.store,
			Watch:        watchFactory(r.cfg.Watch.Patterns, svc.Debounce),
			Config:       svc,
			WatchDefault: r.cfg.Watch.Enabled,
		},
		Discoverer: mvn.Discoverer{},
	}
}

// dashboard builds the options for one dashboard over a new manager.
func (r *runtime) dashboard(paths []string) tui.Options {
	theme, _ := schema.NormalizeThemeName(r.cfg.UI.Theme)
	return tui.Options{
		Manager:  core.NewManager(r.managerConfig()),
		Prefs:    r.store,
		Theme:    theme,
		Tick:     r.cfg.TickInterval(),
		Paths:    paths,
		Starters: mvn.FindStarters,
	}
}

func watchFactory(patterns []string, quiet time.Duration) core.WatchFactory {
	return func(ctx context.Context, root string) (core.ChangeSource, error) {
		w, err := watch.New(ctx, root, watch.Config{Patterns: patterns, Quiet: quiet})
		if err != nil {
			return nil, err
		}
		return w, nil
	}
}

// initialPaths picks the projects to open at startup: explicit arguments,
// else the working directory when it holds a pom, else the projects open
// when the dashboard last exited. An empty result shows the picker.
func initialPaths(args []string, cwd string, prefs schema.Prefs) []string {
	if len(args) > 0 {
		return args
	}
	if cwd != "" {
		if _, err := os.Stat(filepath.Join(cwd, "pom.xml")); err == nil {
			return []string{cwd}
		}
	}
	var out []string
	for _, path := range prefs.OpenProjects {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			out = append(out, path)
		}
	}
	return out
}

func runDashboard(ctx context.Context, cfgPath string, args []string) error {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return err
	}
	// The dashboard owns the terminal, so logs go to the log file only.
	sink, err := logx.OpenSink(cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()
	logger := logx.NewLogger(sink, cfg.Logging.Level)
	ctx = pslog.ContextWithLogger(ctx, logger)

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	prefs, _, err := rt.store.LoadPrefs()
	if err != nil {
		logger.Warn("prefs load failed", "err", err)
	}
	cwd, _ := os.Getwd()
	paths := initialPaths(args, cwd, prefs)
	logger.Info("dashboard starting", "projects", paths, "config_version", cfg.ConfigVersion)
	if err := tui.Run(ctx, rt.dashboard(paths)); err != nil {
		return err
	}
	logger.Info("dashboard exited")
	return nil
}
