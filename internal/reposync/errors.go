package reposync

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Reasons attached to transport errors so the CLI can print a useful hint.
var (
	ErrAuthRequired   = errors.New("authentication required")
	ErrRepoNotFound   = errors.New("repository not found")
	ErrBranchNotFound = errors.New("branch not found")
	ErrEmptyRemote    = errors.New("remote repository is empty")
)

// classifyError tags go-git errors with a reason while keeping
// the original error in the chain. Unknown errors pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var reason error
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		reason = ErrAuthRequired
	case errors.Is(err, transport.ErrRepositoryNotFound),
		errors.Is(err, gogit.ErrRepositoryNotExists):
		reason = ErrRepoNotFound
	case errors.Is(err, plumbing.ErrReferenceNotFound),
		errors.Is(err, gogit.NoMatchingRefSpecError{}):
		reason = ErrBranchNotFound
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		reason = ErrEmptyRemote
	default:
		return err
	}

	return fmt.Errorf("%w: %w", reason, err)
}
