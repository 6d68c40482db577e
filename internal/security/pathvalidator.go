package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("path escapes repository")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
	ErrNotBaseName  = errors.New("name must not contain path separators")
)

// ValidateName checks that name is a single local path element, suitable
// as an artifact name. Dots are allowed (package names such as
// com.example.app) but "." and ".." are not.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyPath
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %s", ErrNotBaseName, name)
	}
	if !filepath.IsLocal(name) || name == "." {
		return fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}
	return nil
}

// ValidateRelative validates a relative path such as an app directory and
// returns it cleaned. It rejects:
// - Empty paths
// - Absolute paths
// - Paths that escape their parent (using ..)
// - Windows reserved names (CON, NUL, etc.)
func ValidateRelative(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if !filepath.IsLocal(userPath) {
		if filepath.IsAbs(userPath) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	return filepath.Clean(userPath), nil
}

// PathValidator confines file operations to a repository copy using
// the os.Root API.
type PathValidator struct {
	repoRoot *os.Root
	repoPath string
}

// New creates a new PathValidator for the repository at the given path.
func New(repoPath string) (*PathValidator, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository root: %w", err)
	}

	return &PathValidator{
		repoRoot: root,
		repoPath: absPath,
	}, nil
}

// Close releases resources held by the PathValidator.
func (pv *PathValidator) Close() error {
	if pv.repoRoot != nil {
		return pv.repoRoot.Close()
	}
	return nil
}

// Resolve validates a repository-relative path and returns its absolute
// location inside the repository.
func (pv *PathValidator) Resolve(rel string) (string, error) {
	clean, err := ValidateRelative(rel)
	if err != nil {
		return "", err
	}

	absPath := filepath.Join(pv.repoPath, clean)
	relPath, err := filepath.Rel(pv.repoPath, absPath)
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, rel)
	}

	return absPath, nil
}

// MkdirAllInRoot creates directories within the repository. Symlinks that
// would lead outside the repository are refused by os.Root.
func (pv *PathValidator) MkdirAllInRoot(rel string, perm os.FileMode) error {
	clean, err := ValidateRelative(rel)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return pv.repoRoot.MkdirAll(clean, perm)
}

// StatInRoot stats a file within the repository.
func (pv *PathValidator) StatInRoot(rel string) (os.FileInfo, error) {
	clean, err := ValidateRelative(rel)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return pv.repoRoot.Stat(clean)
}
