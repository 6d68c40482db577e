package reposync

import (
	"context"
	"errors"
	"fmt"

	kerrors "github.com/illarion/sous/internal/errors"
	"github.com/illarion/sous/internal/git"
)

// CLI is the transport backed by the git binary.
type CLI struct {
	Runner git.Runner
}

func (c *CLI) run(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := c.Runner.Run(ctx, dir, args...)
	if errors.Is(err, git.ErrNotInstalled) {
		return "", fmt.Errorf("%w: %w", kerrors.ErrToolUnavailable, err)
	}
	return out, err
}

func (c *CLI) Clone(ctx context.Context, url, branch, dir string) error {
	_, err := c.run(ctx, "", "clone", "--quiet", "--origin", DefaultRemote, "--branch", branch, "--", url, dir)
	return err
}

func (c *CLI) Fetch(ctx context.Context, dir, remote string) error {
	_, err := c.run(ctx, dir, "fetch", "--quiet", "--force", remote,
		fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", remote))
	return err
}

func (c *CLI) ForceCheckout(ctx context.Context, dir, remote, branch string) error {
	_, err := c.run(ctx, dir, "checkout", "--quiet", "--force", "-B", branch, remote+"/"+branch)
	return err
}

func (c *CLI) Pull(ctx context.Context, dir, remote, branch string) error {
	_, err := c.run(ctx, dir, "pull", "--quiet", "--ff-only", remote, branch)
	return err
}

// Check reports the git version, failing when git is not installed.
func (c *CLI) Check(ctx context.Context) (string, error) {
	v, err := c.Runner.Version(ctx)
	if errors.Is(err, git.ErrNotInstalled) {
		return "", fmt.Errorf("%w: %w", kerrors.ErrToolUnavailable, err)
	}
	return v, err
}

func (c *CLI) Head(ctx context.Context, dir string) (string, error) {
	return c.run(ctx, dir, "rev-parse", "HEAD")
}
