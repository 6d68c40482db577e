package git

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git CLI not available, skipping test")
	}
}

func TestRunnerMissingBinary(t *testing.T) {
	r := Runner{Binary: "definitely-not-git-binary"}
	if _, err := r.Run(context.Background(), t.TempDir(), "status"); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("expected ErrNotInstalled, got %v", err)
	}
}

func TestRunnerVersion(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	r := Runner{}

	v, err := r.Version(ctx)
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if !strings.HasPrefix(v, "git version") {
		t.Errorf("unexpected version output %q", v)
	}

	dir := t.TempDir()
	if _, err := r.Run(ctx, dir, "init", "-q"); err != nil {
		t.Fatalf("git init failed: %v", err)
	}
	out, err := r.Run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	if err != nil || out != "true" {
		t.Errorf("rev-parse = %q, %v", out, err)
	}
}

func TestCommandError(t *testing.T) {
	requireGit(t)

	_, err := Runner{}.Run(context.Background(), t.TempDir(), "rev-parse", "HEAD")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if cmdErr.Stderr == "" {
		t.Error("stderr should be captured")
	}
	if !strings.Contains(err.Error(), "git rev-parse HEAD") {
		t.Errorf("error should name the command: %v", err)
	}
}
