package reposync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	kerrors "github.com/illarion/sous/internal/errors"
	"github.com/illarion/sous/internal/logging"
)

// DefaultRemote is the remote name used for every local copy.
const DefaultRemote = "origin"

// Transport performs the version-control operations of a sync.
type Transport interface {
	// Clone creates dir as a clone of url with branch checked out.
	Clone(ctx context.Context, url, branch, dir string) error
	// Fetch updates every remote-tracking branch of remote.
	Fetch(ctx context.Context, dir, remote string) error
	// ForceCheckout points branch at remote/branch and checks it out,
	// discarding local modifications.
	ForceCheckout(ctx context.Context, dir, remote, branch string) error
	// Pull merges remote/branch into the checked out branch.
	Pull(ctx context.Context, dir, remote, branch string) error
	// Head returns the commit hash checked out in dir.
	Head(ctx context.Context, dir string) (string, error)
}

// Result describes what a sync did.
type Result struct {
	Cloned   bool
	Previous string // head before the sync, empty after a clone
	Head     string
}

// Changed reports whether the sync moved the working tree.
func (r *Result) Changed() bool {
	return r.Cloned || r.Previous != r.Head
}

// Syncer drives a Transport through clone or update.
type Syncer struct {
	Transport Transport
	Remote    string
	Log       logging.Logger
}

// New returns a Syncer using t and the default remote name.
func New(t Transport, log logging.Logger) *Syncer {
	return &Syncer{Transport: t, Remote: DefaultRemote, Log: log}
}

func (s *Syncer) remote() string {
	if s.Remote != "" {
		return s.Remote
	}
	return DefaultRemote
}

// HasCopy reports whether dir holds a local copy.
func HasCopy(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Sync brings dir to the tip of branch on url.
func (s *Syncer) Sync(ctx context.Context, url, branch, dir string) (*Result, error) {
	if url == "" || branch == "" || dir == "" {
		return nil, fmt.Errorf("%w: url, branch and directory are required", kerrors.ErrInvalidInput)
	}

	if !HasCopy(dir) {
		return s.clone(ctx, url, branch, dir)
	}
	return s.update(ctx, url, branch, dir)
}

func (s *Syncer) clone(ctx context.Context, url, branch, dir string) (*Result, error) {
	s.Log.Infof("Cloning %s (branch %s)", url, branch)

	// leftovers of an interrupted clone would make the transport refuse
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	if err := s.Transport.Clone(ctx, url, branch, dir); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			s.Log.Warnf("Failed to remove partial clone %s: %v", dir, rmErr)
		}
		return nil, fmt.Errorf("%w: %s: %w", kerrors.ErrCloneFailed, url, classifyError(err))
	}

	head, err := s.Transport.Head(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading head: %w", kerrors.ErrCloneFailed, url, err)
	}

	s.Log.Debugf("Cloned %s at %s", url, head)
	return &Result{Cloned: true, Head: head}, nil
}

func (s *Syncer) update(ctx context.Context, url, branch, dir string) (*Result, error) {
	remote := s.remote()
	s.Log.Infof("Updating %s (branch %s)", url, branch)

	prev, err := s.Transport.Head(ctx, dir)
	if err != nil {
		// a copy without a resolvable HEAD is still worth fetching into
		s.Log.Debugf("No head in %s: %v", dir, err)
		prev = ""
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"fetch", func() error { return s.Transport.Fetch(ctx, dir, remote) }},
		{"checkout " + remote + "/" + branch, func() error { return s.Transport.ForceCheckout(ctx, dir, remote, branch) }},
		{"pull", func() error { return s.Transport.Pull(ctx, dir, remote, branch) }},
	}
	for _, step := range steps {
		s.Log.Debugf("git %s", step.name)
		if err := step.run(); err != nil {
			return nil, fmt.Errorf("%w: %s failed: %w", kerrors.ErrSyncFailed, step.name, classifyError(err))
		}
	}

	head, err := s.Transport.Head(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading head: %w", kerrors.ErrSyncFailed, err)
	}

	if prev != head {
		s.Log.Infof("Updated %s to %s", shortHash(prev), shortHash(head))
	} else {
		s.Log.Debugf("Already up to date at %s", shortHash(head))
	}
	return &Result{Previous: prev, Head: head}, nil
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	if h == "" {
		return "(none)"
	}
	return h
}

// Remove deletes a local copy.
func Remove(dir string) error {
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove local copy: %w", err)
	}
	return nil
}
