package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNotInstalled is returned when no git binary is found in PATH.
var ErrNotInstalled = errors.New("git executable not found in PATH")

// CommandError carries the output of a failed git invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner executes git commands.
type Runner struct {
	// Binary defaults to "git".
	Binary string
	// Env is appended to the process environment.
	Env []string
}

func (r Runner) binary() string {
	if r.Binary != "" {
		return r.Binary
	}
	return "git"
}

// LookPath verifies that the git binary is available.
func (r Runner) LookPath() (string, error) {
	path, err := exec.LookPath(r.binary())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotInstalled, err)
	}
	return path, nil
}

// Run executes git with args in workDir and returns trimmed stdout.
// Prompts are disabled so a missing credential fails instead of hanging.
func (r Runner) Run(ctx context.Context, workDir string, args ...string) (string, error) {
	bin, err := r.LookPath()
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Env = append(cmd.Env, r.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &CommandError{Args: args, Stderr: stderr.String(), Err: err}
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Version returns the output of `git --version`.
func (r Runner) Version(ctx context.Context) (string, error) {
	return r.Run(ctx, "", "--version")
}
