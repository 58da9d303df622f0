// Package git reads repository metadata for project tabs.
package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"pkt.systems/mavdeck/internal/logx"
)

// ErrUnavailable is returned when the git binary cannot be found.
var ErrUnavailable = errors.New("git not available")

// Run executes a git command in dir and returns its trimmed standard output.
func Run(ctx context.Context, dir string, args ...string) (string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", ErrUnavailable
	}
	log := logx.Ctx(ctx).With("dir", dir, "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		preview := strings.TrimSpace(stderr.String())
		if len(preview) > 200 {
			preview = preview[:200]
		}
		log.Debug("git run failed", "err", err, "stderr", preview)
		return "", fmt.Errorf("git %s failed: %w (%s)", strings.Join(args, " "), err, preview)
	}
	return strings.TrimSpace(string(output)), nil
}

// Branch returns the checked-out branch of the repository holding dir, or
// the short commit hash for a detached HEAD. ok is false outside a
// repository or when git is missing.
func Branch(ctx context.Context, dir string) (string, bool) {
	if name, err := Run(ctx, dir, "symbolic-ref", "--short", "-q", "HEAD"); err == nil && name != "" {
		return name, true
	}
	if hash, err := Run(ctx, dir, "rev-parse", "--short", "HEAD"); err == nil && hash != "" {
		return hash, true
	}
	return "", false
}
