package reposync

import (
	"fmt"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/illarion/sous/internal/crypto"
)

// untrackedFile is an untracked regular file held across a forced
// checkout. go-git removes untracked files on a forced checkout, the git
// binary does not; decrypted artifacts and sealed, unpushed ones live there.
type untrackedFile struct {
	path string
	data []byte
	mode os.FileMode
}

// saveUntracked reads every untracked, non-ignored regular file of wt.
func saveUntracked(wt *gogit.Worktree, dir string) ([]untrackedFile, error) {
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}

	var files []untrackedFile
	for rel, s := range status {
		if s.Worktree != gogit.Untracked {
			continue
		}
		path := filepath.Join(dir, filepath.FromSlash(rel))
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			clearUntracked(files)
			return nil, fmt.Errorf("failed to read untracked %s: %w", rel, err)
		}
		files = append(files, untrackedFile{path: path, data: data, mode: info.Mode().Perm()})
	}
	return files, nil
}

// restoreUntracked writes back the files a checkout removed. A path the
// checkout now tracks keeps the tracked content, as with git checkout -f.
func restoreUntracked(files []untrackedFile) error {
	defer clearUntracked(files)

	for _, f := range files {
		if _, err := os.Lstat(f.path); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
			return fmt.Errorf("failed to restore %s: %w", f.path, err)
		}
		if err := os.WriteFile(f.path, f.data, f.mode); err != nil {
			return fmt.Errorf("failed to restore %s: %w", f.path, err)
		}
	}
	return nil
}

func clearUntracked(files []untrackedFile) {
	for _, f := range files {
		crypto.ClearBytes(f.data)
	}
}
