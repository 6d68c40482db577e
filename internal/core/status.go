package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	kerrors "github.com/illarion/sous/internal/errors"
	"github.com/illarion/sous/internal/keyring"
	"github.com/illarion/sous/internal/keys"
	"github.com/illarion/sous/internal/locator"
	"github.com/illarion/sous/internal/reposync"
	"github.com/illarion/sous/internal/storage"
)

// toolChecker is implemented by transports and ciphers that run an
// external binary.
type toolChecker interface {
	Check(ctx context.Context) (string, error)
}

// ToolStatus reports an external binary the configuration depends on.
type ToolStatus struct {
	Name    string
	Version string
	Err     error
}

// StatusInfo describes the cache of one remote.
type StatusInfo struct {
	RemoteURL string
	RemoteID  string
	CacheDir  string

	KeyPath    string
	KeyPresent bool
	KeyError   error // non-nil when present but unusable
	InKeyring  bool

	RepoDir  string
	HasCopy  bool
	Head     string
	Locked   bool // a fetch holds the remote's lock
	LastSync *storage.SyncRecord
	Modified time.Time // last write to the state database

	PlaintextPath    string // empty when no artifact name was given
	PlaintextPresent bool

	Artifacts []storage.ArtifactEntry
	Tools     []ToolStatus
}

// Status reports the cache state of a remote (no passphrase required).
// artifactName is optional.
func (v *Vault) Status(ctx context.Context, remoteURL, artifactName string) (*StatusInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(remoteURL) == "" {
		return nil, fmt.Errorf("%w: remote URL is required", kerrors.ErrInvalidInput)
	}

	var p locator.Paths
	if artifactName != "" {
		if err := v.validate(remoteURL, artifactName); err != nil {
			return nil, err
		}
		p = v.Paths(remoteURL, artifactName)
	} else {
		p = locator.PlanRemote(v.cfg.CacheDir, remoteURL, v.cfg.Layout())
	}

	status := &StatusInfo{
		RemoteURL:     remoteURL,
		RemoteID:      p.RemoteID,
		CacheDir:      v.cfg.CacheDir,
		KeyPath:       p.KeyPath,
		RepoDir:       p.RepoDir,
		PlaintextPath: p.PlaintextPath,
	}
	if v.cfg.Keyring.Enabled {
		status.InKeyring = keyring.HasPassphrase(p.RemoteID)
	}

	if _, err := os.Stat(p.KeyPath); err == nil {
		status.KeyPresent = true
		_, status.KeyError = keys.Validate(p.KeyPath)
	}

	if p.PlaintextPath != "" {
		if _, err := os.Stat(p.PlaintextPath); err == nil {
			status.PlaintextPresent = true
		}
	}

	status.Tools = v.checkTools(ctx)

	status.HasCopy = reposync.HasCopy(p.RepoDir)
	if status.HasCopy {
		head, err := v.sync.Transport.Head(ctx, p.RepoDir)
		if err != nil {
			v.log.Debugf("Reading head of %s: %v", p.RepoDir, err)
		}
		status.Head = head

		listing, err := scanListing(p.ArtifactDir)
		if err != nil {
			return nil, err
		}
		status.Artifacts = listing.Files
	}

	if _, err := os.Stat(p.StatePath); err != nil {
		return status, nil
	}

	db, err := storage.OpenReadOnly(p.StatePath, statusLockTimeout)
	if errors.Is(err, kerrors.ErrLocked) {
		status.Locked = true
		return status, nil
	}
	if err != nil {
		return nil, err
	}
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil || !initialized {
		return status, err
	}
	if recorded, err := db.RemoteURL(); err == nil && recorded != remoteURL {
		v.log.Warnf("State %s was recorded for %s", p.StatePath, recorded)
	}
	if status.Modified, err = db.GetModified(); err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	status.LastSync, err = db.GetSyncRecord()
	if err != nil {
		return nil, fmt.Errorf("failed to read sync record: %w", err)
	}
	return status, nil
}

func (v *Vault) checkTools(ctx context.Context) []ToolStatus {
	var tools []ToolStatus
	for name, c := range map[string]any{"git": v.sync.Transport, "openssl": v.engine.Cipher} {
		tc, ok := c.(toolChecker)
		if !ok {
			continue
		}
		version, err := tc.Check(ctx)
		tools = append(tools, ToolStatus{Name: name, Version: version, Err: err})
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}
