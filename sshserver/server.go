// Package sshserver serves the dashboard over SSH, one independent set of
// sessions per connection.
package sshserver

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	gliderssh "github.com/gliderlabs/ssh"
	"github.com/muesli/termenv"
	"golang.org/x/crypto/ssh"

	"pkt.systems/mavdeck/internal/logx"
	"pkt.systems/mavdeck/tui"
	"pkt.systems/pslog"
)

// DashboardFactory builds fresh dashboard options, including a new manager,
// for one connection.
type DashboardFactory func(ctx context.Context) (tui.Options, error)

// Server exposes the dashboard over SSH.
type Server struct {
	Addr               string
	HostKeyPath        string
	AuthorizedKeysPath string
	Listener           net.Listener
	Dashboard          DashboardFactory
	logger             pslog.Logger
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = logx.Ctx(ctx)
	}
	if s.Dashboard == nil {
		return errors.New("dashboard factory is required for SSH")
	}
	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}
	// Fail fast on a missing or broken file; it is re-read on every login.
	keys, err := LoadAuthorizedKeys(s.AuthorizedKeysPath)
	if err != nil {
		return err
	}
	s.logger.Info("ssh authorized keys loaded", "path", s.AuthorizedKeysPath, "keys", keys.Len())

	server := &gliderssh.Server{
		Addr:             s.Addr,
		Handler:          s.handleSession,
		PublicKeyHandler: s.handlePublicKey,
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()
	s.logger.Info("ssh server listening", "addr", s.listenAddr(), "fingerprint", ssh.FingerprintSHA256(signer.PublicKey()))

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) listenAddr() string {
	if s.Listener != nil {
		return s.Listener.Addr().String()
	}
	return s.Addr
}

func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	log := s.logger.With("user", ctx.User(), "remote", remoteAddr(ctx), "fingerprint", ssh.FingerprintSHA256(key))
	ok, err := s.authorize(key)
	if err != nil {
		log.Warn("ssh pubkey rejected", "err", err)
		return false
	}
	if !ok {
		log.Warn("ssh pubkey rejected", "reason", "no matching key")
		return false
	}
	log.Info("ssh pubkey accepted")
	return true
}

// authorize checks key against the current authorized_keys file.
func (s *Server) authorize(key ssh.PublicKey) (bool, error) {
	keys, err := LoadAuthorizedKeys(s.AuthorizedKeysPath)
	if err != nil {
		return false, err
	}
	return keys.Contains(key), nil
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger.With("user", sess.User(), "remote", sess.RemoteAddr().String())
	if id := sess.Context().SessionID(); id != "" {
		log = log.With("ssh_session", shortID(id))
	}
	ctx := pslog.ContextWithLogger(sess.Context(), log)

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		_ = sess.Exit(1)
		return
	}

	opts, err := s.Dashboard(ctx)
	if err != nil {
		log.Error("ssh dashboard setup failed", "err", err)
		_, _ = io.WriteString(sess, "dashboard unavailable\n")
		_ = sess.Exit(1)
		return
	}
	profile := colorProfile(pty.Term, sess.Environ())
	opts.Renderer = lipgloss.NewRenderer(sess, termenv.WithProfile(profile))
	opts.Renderer.SetColorProfile(profile)

	log.Info("ssh session opened", "term", pty.Term, "width", pty.Window.Width, "height", pty.Window.Height)
	p := tui.NewProgram(ctx, opts, tea.WithInput(sess), tea.WithOutput(sess))
	go func() {
		p.Send(tea.WindowSizeMsg{Width: pty.Window.Width, Height: pty.Window.Height})
		for {
			select {
			case <-ctx.Done():
				return
			case win, ok := <-winCh:
				if !ok {
					return
				}
				p.Send(tea.WindowSizeMsg{Width: win.Width, Height: win.Height})
			}
		}
	}()
	if err := tui.Wait(ctx, opts, p); err != nil {
		log.Warn("ssh dashboard exited", "err", err)
	}
	log.Info("ssh session closed")
}

// colorProfile picks a color profile from the client's TERM and environment.
func colorProfile(term string, environ []string) termenv.Profile {
	for _, kv := range environ {
		if kv == "COLORTERM=truecolor" || kv == "COLORTERM=24bit" {
			return termenv.TrueColor
		}
	}
	switch {
	case term == "" || term == "dumb":
		return termenv.Ascii
	case strings.Contains(term, "truecolor") || strings.Contains(term, "direct"):
		return termenv.TrueColor
	case strings.Contains(term, "256color"):
		return termenv.ANSI256
	default:
		return termenv.ANSI
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
