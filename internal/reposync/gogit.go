package reposync

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// GoGit is the native transport.
type GoGit struct {
	// Auth is passed to every network operation; nil means anonymous or
	// whatever the transport picks up by default (ssh-agent for ssh URLs).
	Auth transport.AuthMethod
}

// SSHKeyAuth loads a private key file for ssh remotes.
func SSHKeyAuth(user, keyPath, password string) (transport.AuthMethod, error) {
	if user == "" {
		user = "git"
	}
	auth, err := ssh.NewPublicKeysFromFile(user, keyPath, password)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key %q: %w", keyPath, err)
	}
	return auth, nil
}

// BasicAuth is HTTP basic authentication, typically a username and token.
func BasicAuth(username, password string) transport.AuthMethod {
	return &http.BasicAuth{Username: username, Password: password}
}

func storage(dir string) (*filesystem.Storage, error) {
	fs := osfs.New(dir)
	dotGitFs, err := fs.Chroot(".git")
	if err != nil {
		return nil, fmt.Errorf("failed to create .git filesystem: %w", err)
	}
	return filesystem.NewStorage(dotGitFs, cache.NewObjectLRUDefault()), nil
}

func open(dir string) (*gogit.Repository, error) {
	st, err := storage(dir)
	if err != nil {
		return nil, err
	}
	repo, err := gogit.Open(st, osfs.New(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return repo, nil
}

func (g *GoGit) Clone(ctx context.Context, url, branch, dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create clone directory: %w", err)
	}
	st, err := storage(dir)
	if err != nil {
		return err
	}

	_, err = gogit.CloneContext(ctx, st, osfs.New(dir), &gogit.CloneOptions{
		URL:           url,
		Auth:          g.Auth,
		RemoteName:    DefaultRemote,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	return nil
}

func (g *GoGit) Fetch(ctx context.Context, dir, remote string) error {
	repo, err := open(dir)
	if err != nil {
		return err
	}

	err = repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", remote))},
		Auth:       g.Auth,
		Force:      true,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to fetch from remote: %w", err)
	}
	return nil
}

func (g *GoGit) ForceCheckout(_ context.Context, dir, remote, branch string) error {
	repo, err := open(dir)
	if err != nil {
		return err
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
	if err != nil {
		return fmt.Errorf("failed to resolve %s/%s: %w", remote, branch, err)
	}

	local := plumbing.NewBranchReferenceName(branch)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(local, remoteRef.Hash())); err != nil {
		return fmt.Errorf("failed to move %s: %w", branch, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	kept, err := saveUntracked(wt, dir)
	if err != nil {
		return err
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{Branch: local, Force: true}); err != nil {
		clearUntracked(kept)
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}
	return restoreUntracked(kept)
}

func (g *GoGit) Pull(ctx context.Context, dir, remote, branch string) error {
	repo, err := open(dir)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	kept, err := saveUntracked(wt, dir)
	if err != nil {
		return err
	}
	err = wt.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    remote,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		Auth:          g.Auth,
		Force:         true,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		clearUntracked(kept)
		return fmt.Errorf("failed to pull: %w", err)
	}
	return restoreUntracked(kept)
}

func (g *GoGit) Head(_ context.Context, dir string) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}
