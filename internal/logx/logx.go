package logx

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pkt.systems/mavdeck/schema"
	"pkt.systems/pslog"
)

type contextKey int

const sessionKey contextKey = iota

// Ctx returns the logger bound to the provided context, or a discarding
// logger when none is bound.
func Ctx(ctx context.Context) pslog.Logger {
	if ctx != nil {
		if log := pslog.Ctx(ctx); log != nil {
			return log
		}
	}
	return Discard()
}

// Discard returns a logger that drops everything.
func Discard() pslog.Logger {
	return pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true, MinLevel: pslog.ErrorLevel})
}

// NewLogger builds a structured logger writing to w at the named level.
func NewLogger(w io.Writer, level string) pslog.Logger {
	opts := pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		opts.MinLevel = pslog.TraceLevel
	case "debug":
		opts.MinLevel = pslog.DebugLevel
	case "warn", "warning":
		opts.MinLevel = pslog.WarnLevel
	case "error":
		opts.MinLevel = pslog.ErrorLevel
	}
	return pslog.NewWithOptions(w, opts)
}

// WithSession annotates the logger with the session id if present.
func WithSession(log pslog.Logger, id schema.SessionID) pslog.Logger {
	if id != "" {
		log = log.With("session", id)
	}
	return log
}

// WithProject annotates the logger with the project root when available.
func WithProject(log pslog.Logger, root string) pslog.Logger {
	if root != "" {
		log = log.With("project", filepath.Base(root), "project_path", root)
	}
	return log
}

// ContextWithSession stores the session marker on the context.
func ContextWithSession(ctx context.Context, id schema.SessionID) context.Context {
	if ctx == nil || id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, id)
}

// SessionFromContext returns the session marker, if any.
func SessionFromContext(ctx context.Context) schema.SessionID {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(sessionKey).(schema.SessionID)
	return id
}

// Sink serializes log writes to a single destination. The dashboard owns the
// terminal, so logs go to a file.
type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewSink wraps w.
func NewSink(w io.Writer) *Sink {
	if w == nil {
		w = io.Discard
	}
	s := &Sink{w: w}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenSink appends to the file at path, creating parent directories.
func OpenSink(path string) (*Sink, error) {
	if strings.TrimSpace(path) == "" {
		return NewSink(io.Discard), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return NewSink(file), nil
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Close closes the underlying writer when it is closable.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	s.w = io.Discard
	return err
}
