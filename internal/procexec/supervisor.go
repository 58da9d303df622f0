// Package procexec spawns build-tool processes and streams their output.
package procexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"pkt.systems/mavdeck/core"
	"pkt.systems/mavdeck/internal/logx"
	"pkt.systems/mavdeck/schema"
	"pkt.systems/pslog"
)

const (
	eventBuffer    = 256
	maxLineSize    = 1024 * 1024
	readBufferSize = 64 * 1024
	// drainTimeout bounds how long output is read after the process exits,
	// in case a detached grandchild keeps the pipe open.
	drainTimeout = 2 * time.Second
)

// Config controls process supervision.
type Config struct {
	// Grace is how long a process may run after SIGTERM before SIGKILL.
	Grace time.Duration
	// Env is appended to the inherited environment.
	Env []string
}

// Supervisor implements core.Supervisor for local processes.
type Supervisor struct {
	cfg Config
}

// New constructs a supervisor.
func New(cfg Config) *Supervisor {
	if cfg.Grace <= 0 {
		cfg.Grace = schema.DefaultKillGrace
	}
	return &Supervisor{cfg: cfg}
}

// Start spawns cmd. Output from stdout and stderr shares one pipe so that the
// child's interleaving is preserved.
func (s *Supervisor) Start(ctx context.Context, cmd schema.Command) (core.ProcessHandle, error) {
	log := logx.Ctx(ctx)
	path, err := exec.LookPath(cmd.Executable)
	if err != nil {
		log.Warn("process lookup failed", "executable", cmd.Executable, "err", err)
		return nil, core.NewRunError(core.ErrorSpawn, "lookup", err)
	}

	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, core.NewRunError(core.ErrorSpawn, "pipe", err)
	}

	proc := exec.Command(path, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.Env = append(os.Environ(), s.cfg.Env...)
	proc.Env = append(proc.Env, cmd.Env...)
	proc.Stdout = writer
	proc.Stderr = writer
	setProcessGroup(proc)

	log.Info("process start", "executable", path, "args", cmd.Args, "workdir", cmd.Dir)
	if err := proc.Start(); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		log.Error("process start failed", "err", err)
		return nil, core.NewRunError(core.ErrorSpawn, "start", err)
	}
	_ = writer.Close()

	h := &handle{
		cmd:     proc,
		pid:     proc.Process.Pid,
		started: time.Now(),
		events:  make(chan core.ProcessEvent, eventBuffer),
		exited:  make(chan struct{}),
		grace:   s.cfg.Grace,
		log:     log.With("pid", proc.Process.Pid),
	}
	h.log.Info("process started")
	go h.run(reader)
	return h, nil
}

type handle struct {
	cmd     *exec.Cmd
	pid     int
	started time.Time
	events  chan core.ProcessEvent
	exited  chan struct{}
	grace   time.Duration
	log     pslog.Logger

	mu        sync.Mutex
	cancelled bool
	killTimer *time.Timer
}

func (h *handle) Pid() int                          { return h.pid }
func (h *handle) Started() time.Time                { return h.started }
func (h *handle) Events() <-chan core.ProcessEvent { return h.events }

// run owns the event channel: line events, then one terminal event, then close.
func (h *handle) run(reader *os.File) {
	defer close(h.events)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		h.readLines(reader)
	}()

	waitErr := h.cmd.Wait()
	close(h.exited)
	h.stopKillTimer()

	select {
	case <-readDone:
	case <-time.After(drainTimeout):
		h.log.Warn("process output still open after exit")
		_ = reader.Close()
		<-readDone
	}
	_ = reader.Close()

	h.events <- terminalEvent(waitErr)
	h.log.Info("process exited", "duration_ms", time.Since(h.started).Milliseconds())
}

// readLines emits one event per output line until the pipe closes. Lines
// longer than maxLineSize are cut at that size and the remainder is discarded,
// so the pipe is always drained and the child can finish writing.
func (h *handle) readLines(reader io.Reader) {
	br := bufio.NewReaderSize(reader, readBufferSize)
	var line []byte
	truncated := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !truncated {
			if room := maxLineSize - len(line); len(chunk) > room {
				line = append(line, chunk[:room]...)
				truncated = true
			} else {
				line = append(line, chunk...)
			}
		}
		switch {
		case err == nil:
			h.emitLine(line, truncated)
			line = line[:0]
			truncated = false
		case errors.Is(err, bufio.ErrBufferFull):
		default:
			if len(line) > 0 {
				h.emitLine(line, truncated)
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				h.log.Warn("process output read failed", "err", err)
			}
			return
		}
	}
}

func (h *handle) emitLine(line []byte, truncated bool) {
	text := strings.TrimSuffix(string(line), "\n")
	text = strings.TrimSuffix(text, "\r")
	if truncated {
		h.log.Debug("process output line truncated", "limit", maxLineSize)
	}
	h.events <- core.ProcessEvent{Kind: core.EventLine, Line: text}
}

func terminalEvent(err error) core.ProcessEvent {
	if err == nil {
		return core.ProcessEvent{Kind: core.EventCompleted, Code: 0}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			code = signalExitCode(exitErr)
		}
		return core.ProcessEvent{Kind: core.EventCompleted, Code: code}
	}
	return core.ProcessEvent{Kind: core.EventError, Code: -1, Message: err.Error()}
}

// Cancel sends SIGTERM to the process group and schedules SIGKILL after the
// grace period. Once the process has exited it does nothing.
func (h *handle) Cancel() error {
	select {
	case <-h.exited:
		return nil
	default:
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		return nil
	}
	if err := terminate(h.cmd); err != nil {
		select {
		case <-h.exited:
			return nil
		default:
		}
		h.log.Warn("process terminate failed", "err", err)
		return core.NewRunError(core.ErrorKill, "terminate", fmt.Errorf("pid %d: %w", h.pid, err))
	}
	h.cancelled = true
	h.log.Info("process terminate sent", "grace", h.grace.String())
	h.killTimer = time.AfterFunc(h.grace, func() {
		select {
		case <-h.exited:
			return
		default:
		}
		h.log.Warn("process did not exit after terminate; killing")
		if err := kill(h.cmd); err != nil {
			h.log.Warn("process kill failed", "err", err)
		}
	})
	return nil
}

func (h *handle) stopKillTimer() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.killTimer != nil {
		h.killTimer.Stop()
	}
}
