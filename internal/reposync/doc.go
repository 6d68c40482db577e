// Package reposync keeps a local copy of a remote repository in step with
// one branch of the remote.
//
// The first sync clones the branch. Later syncs fetch, force the working
// tree to origin/<branch> and pull, so local modifications are discarded
// and upstream history wins. A failed clone removes the partially written
// directory; a failed update is reported with the step that failed and the
// copy is left as it is, to be repaired by the next successful sync.
//
// Transports:
//   - GoGit: native client built on go-git, the default
//   - CLI: shells out to the git binary
package reposync
