package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// NewProgram builds a full-screen program for the dashboard. Extra options
// are applied after the defaults.
func NewProgram(ctx context.Context, opts Options, extra ...tea.ProgramOption) *tea.Program {
	programOpts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, extra...)
	return tea.NewProgram(New(ctx, opts), programOpts...)
}

// Run runs the dashboard and blocks until the user quits or ctx is
// cancelled. Every session is closed before it returns.
func Run(ctx context.Context, opts Options, extra ...tea.ProgramOption) error {
	return Wait(ctx, opts, NewProgram(ctx, opts, extra...))
}

// Wait runs p, which must have been built from opts, and closes the
// manager's sessions once it exits.
func Wait(ctx context.Context, opts Options, p *tea.Program) error {
	_, err := p.Run()
	if opts.Manager != nil {
		opts.Manager.Shutdown()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
