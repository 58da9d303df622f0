package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()
	for _, args := range [][]string{
		{"init", "-q"},
		{"checkout", "-q", "-b", "feature/search"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "tester"},
	} {
		if _, err := Run(ctx, dir, args...); err != nil {
			t.Fatalf("git %v: %v", args, err)
		}
	}
	return dir
}

func TestBranchOnUnbornBranch(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)
	branch, ok := Branch(context.Background(), dir)
	if !ok || branch != "feature/search" {
		t.Fatalf("expected feature/search, got %q ok=%v", branch, ok)
	}
}

func TestBranchFromSubdirectory(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)
	sub := filepath.Join(dir, "module-a")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if branch, ok := Branch(context.Background(), sub); !ok || branch != "feature/search" {
		t.Fatalf("expected branch from subdirectory, got %q ok=%v", branch, ok)
	}
}

func TestBranchDetachedHead(t *testing.T) {
	requireGit(t)
	dir := initRepo(t)
	ctx := context.Background()
	if err := os.WriteFile(filepath.Join(dir, "pom.xml"), []byte("<project/>\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Run(ctx, dir, "add", "-A"); err != nil {
		t.Fatalf("git add: %v", err)
	}
	if _, err := Run(ctx, dir, "commit", "-q", "-m", "init"); err != nil {
		t.Fatalf("git commit: %v", err)
	}
	hash, err := Run(ctx, dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		t.Fatalf("rev-parse: %v", err)
	}
	if _, err := Run(ctx, dir, "checkout", "-q", "--detach"); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if branch, ok := Branch(ctx, dir); !ok || branch != hash {
		t.Fatalf("expected %q, got %q ok=%v", hash, branch, ok)
	}
}

func TestBranchOutsideRepo(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	if branch, ok := Branch(context.Background(), dir); ok {
		t.Fatalf("expected no branch outside a repository, got %q", branch)
	}
	if _, err := Run(context.Background(), dir, "status"); err == nil {
		t.Fatalf("expected error outside repo")
	}
}
