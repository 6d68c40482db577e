package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/illarion/sous/internal/artifact"
	"github.com/illarion/sous/internal/config"
	"github.com/illarion/sous/internal/crypto"
	kerrors "github.com/illarion/sous/internal/errors"
	"github.com/illarion/sous/internal/keyring"
	"github.com/illarion/sous/internal/keys"
	"github.com/illarion/sous/internal/locator"
	"github.com/illarion/sous/internal/logging"
	"github.com/illarion/sous/internal/passphrase"
	"github.com/illarion/sous/internal/reposync"
	"github.com/illarion/sous/internal/security"
	"github.com/illarion/sous/internal/storage"
)

const (
	DirPermSecure = 0700 // Directory: owner rwx only

	// statusLockTimeout bounds how long read-only commands wait on a
	// running fetch before reporting the remote as busy.
	statusLockTimeout = 200 * time.Millisecond
)

// Vault composes key derivation, repository sync and decryption.
type Vault struct {
	cfg    *config.Config
	keys   *keys.Deriver
	sync   *reposync.Syncer
	engine *artifact.Engine
	log    logging.Logger
}

// New builds a Vault from configuration. src is asked for a passphrase
// only when a key has to be derived and no preset is given.
func New(cfg *config.Config, src passphrase.Source, log logging.Logger) (*Vault, error) {
	transport, err := newTransport(cfg.Git)
	if err != nil {
		return nil, err
	}

	return &Vault{
		cfg: cfg,
		keys: &keys.Deriver{
			Source:     src,
			Derivation: keys.Derivation{Algorithm: cfg.KDF.Algorithm, Iterations: cfg.KDF.Iterations},
		},
		sync:   reposync.New(transport, log),
		engine: artifact.NewEngine(newCipher(cfg.Cipher), log),
		log:    log,
	}, nil
}

func newTransport(g config.GitConfig) (reposync.Transport, error) {
	if g.Transport == config.TransportCLI {
		return &reposync.CLI{}, nil
	}

	gg := &reposync.GoGit{}
	switch {
	case g.SSHKey != "":
		auth, err := reposync.SSHKeyAuth(g.SSHUser, expandHome(g.SSHKey), "")
		if err != nil {
			return nil, err
		}
		gg.Auth = auth
	case g.TokenEnv != "":
		if token := os.Getenv(g.TokenEnv); token != "" {
			user := g.Username
			if user == "" {
				user = "git"
			}
			gg.Auth = reposync.BasicAuth(user, token)
		}
	}
	return gg, nil
}

func newCipher(c config.CipherConfig) artifact.Cipher {
	if c.Backend == config.CipherOpenSSL {
		return artifact.OpenSSL{}
	}
	n := artifact.Native{Format: crypto.FormatNative, Iterations: c.Iterations}
	if c.Format == config.FormatOpenSSL {
		n.Format = crypto.FormatOpenSSL
	}
	return n
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// FetchRequest names the artifact to fetch and decrypt.
type FetchRequest struct {
	RemoteURL    string
	Branch       string // empty selects the configured branch
	ArtifactName string
	Passphrase   []byte // preset; wins over the passphrase source
}

// FetchResult describes a completed fetch.
type FetchResult struct {
	RemoteID      string
	PlaintextPath string
	EncryptedPath string
	KeyCreated    bool
	Cloned        bool
	Previous      string
	Head          string
	Changes       []Change
}

// Paths returns the cache layout for a remote and artifact.
func (v *Vault) Paths(remoteURL, artifactName string) locator.Paths {
	return locator.Plan(v.cfg.CacheDir, remoteURL, artifactName, v.cfg.Layout())
}

func (v *Vault) validate(remoteURL, artifactName string) error {
	if strings.TrimSpace(remoteURL) == "" {
		return fmt.Errorf("%w: remote URL is required", kerrors.ErrInvalidInput)
	}
	if err := security.ValidateName(artifactName); err != nil {
		return fmt.Errorf("%w: artifact name: %w", kerrors.ErrInvalidInput, err)
	}
	return nil
}

func (v *Vault) branch(b string) string {
	if b != "" {
		return b
	}
	return v.cfg.Branch
}

// ensureKey derives the key on first use and validates the cached file.
func (v *Vault) ensureKey(ctx context.Context, p locator.Paths, remoteURL string, preset []byte) (bool, error) {
	if err := os.MkdirAll(v.cfg.CacheDir, DirPermSecure); err != nil {
		return false, fmt.Errorf("failed to create cache directory: %w", err)
	}

	created, err := v.keys.EnsureKey(ctx, p.KeyPath, p.RemoteID, passphrase.Request{
		Prompt:  fmt.Sprintf("Passphrase for %s: ", remoteURL),
		Secret:  true,
		Preset:  preset,
		Account: p.RemoteID,
	})
	if err != nil {
		return false, err
	}
	if created {
		v.log.Infof("Derived key for %s into %s", remoteURL, p.KeyPath)
	}

	if _, err := keys.Validate(p.KeyPath); err != nil {
		return created, err
	}
	return created, nil
}

// lock opens the state database of a remote, holding its exclusive lock
// until the returned storage is closed.
func (v *Vault) lock(p locator.Paths, remoteURL string) (*storage.Storage, error) {
	v.log.Debugf("Locking %s", p.StatePath)
	db, err := storage.Open(p.StatePath, v.cfg.LockTimeout.Duration)
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(remoteURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize state: %w", err)
	}
	return db, nil
}

// FetchAndDecrypt ensures the key, syncs the repository and decrypts the
// artifact, returning where the plaintext was written. The plaintext is a
// long-lived cache entry and is never removed by sous.
func (v *Vault) FetchAndDecrypt(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	if err := v.validate(req.RemoteURL, req.ArtifactName); err != nil {
		return nil, err
	}
	branch := v.branch(req.Branch)
	p := v.Paths(req.RemoteURL, req.ArtifactName)

	created, err := v.ensureKey(ctx, p, req.RemoteURL, req.Passphrase)
	if err != nil {
		return nil, err
	}

	db, err := v.lock(p, req.RemoteURL)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	synced, err := v.sync.Sync(ctx, req.RemoteURL, branch, p.RepoDir)
	if err != nil {
		return nil, err
	}

	if err := v.engine.Decrypt(ctx, p.EncryptedPath, p.PlaintextPath, p.KeyPath); err != nil {
		return nil, err
	}

	changes, err := v.recordListing(db, p.ArtifactDir, true)
	if err != nil {
		return nil, err
	}

	encHash, err := artifact.FileHash(p.EncryptedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", p.EncryptedPath, err)
	}
	err = db.PutSyncRecord(storage.SyncRecord{
		RemoteURL:     req.RemoteURL,
		Branch:        branch,
		Head:          synced.Head,
		Artifact:      req.ArtifactName,
		PlaintextPath: p.PlaintextPath,
		EncryptedHash: encHash,
		SyncedAt:      time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record sync: %w", err)
	}

	return &FetchResult{
		RemoteID:      p.RemoteID,
		PlaintextPath: p.PlaintextPath,
		EncryptedPath: p.EncryptedPath,
		KeyCreated:    created,
		Cloned:        synced.Cloned,
		Previous:      synced.Previous,
		Head:          synced.Head,
		Changes:       changes,
	}, nil
}

// Changes syncs the repository and reports how its encrypted artifacts
// differ from the last fetch. Nothing is decrypted and no key is needed.
func (v *Vault) Changes(ctx context.Context, remoteURL, branch string) ([]Change, *reposync.Result, error) {
	if strings.TrimSpace(remoteURL) == "" {
		return nil, nil, fmt.Errorf("%w: remote URL is required", kerrors.ErrInvalidInput)
	}
	if err := os.MkdirAll(v.cfg.CacheDir, DirPermSecure); err != nil {
		return nil, nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	p := locator.PlanRemote(v.cfg.CacheDir, remoteURL, v.cfg.Layout())

	db, err := v.lock(p, remoteURL)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	synced, err := v.sync.Sync(ctx, remoteURL, v.branch(branch), p.RepoDir)
	if err != nil {
		return nil, nil, err
	}

	changes, err := v.recordListing(db, p.ArtifactDir, false)
	if err != nil {
		return nil, nil, err
	}
	return changes, synced, nil
}

func (v *Vault) recordListing(db *storage.Storage, artifactDir string, save bool) ([]Change, error) {
	prev, err := db.GetListing(v.cfg.AppDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}
	cur, err := scanListing(artifactDir)
	if err != nil {
		return nil, err
	}

	changes := diffListings(prev, cur)
	if save {
		if err := db.PutListing(v.cfg.AppDir, cur); err != nil {
			return nil, fmt.Errorf("failed to record listing: %w", err)
		}
	}
	for _, c := range changes {
		v.log.Debugf("%s %s", c.Kind, c.Name)
	}
	return changes, nil
}

// SealRequest names a plaintext keystore to publish.
type SealRequest struct {
	RemoteURL    string
	Branch       string
	ArtifactName string
	InputPath    string
	Passphrase   []byte
}

// Seal encrypts InputPath into the artifact location of the local copy and
// returns the encrypted path. Committing and pushing it is left to the user.
func (v *Vault) Seal(ctx context.Context, req SealRequest) (string, error) {
	if err := v.validate(req.RemoteURL, req.ArtifactName); err != nil {
		return "", err
	}
	if req.InputPath == "" {
		return "", fmt.Errorf("%w: input file is required", kerrors.ErrInvalidInput)
	}
	p := v.Paths(req.RemoteURL, req.ArtifactName)

	if _, err := v.ensureKey(ctx, p, req.RemoteURL, req.Passphrase); err != nil {
		return "", err
	}

	db, err := v.lock(p, req.RemoteURL)
	if err != nil {
		return "", err
	}
	defer db.Close()

	if _, err := v.sync.Sync(ctx, req.RemoteURL, v.branch(req.Branch), p.RepoDir); err != nil {
		return "", err
	}

	validator, err := security.New(p.RepoDir)
	if err != nil {
		return "", err
	}
	defer validator.Close()

	if err := validator.MkdirAllInRoot(v.cfg.AppDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", v.cfg.AppDir, err)
	}
	rel := filepath.Join(v.cfg.AppDir, filepath.Base(p.EncryptedPath))
	if _, err := validator.StatInRoot(rel); err == nil {
		v.log.Infof("Replacing %s", rel)
	}
	target, err := validator.Resolve(rel)
	if err != nil {
		return "", fmt.Errorf("%w: %w", kerrors.ErrInvalidInput, err)
	}

	if err := v.engine.Encrypt(ctx, req.InputPath, target, p.KeyPath); err != nil {
		return "", err
	}
	return target, nil
}

// Forget removes the cached key and keyring entry of a remote. With purge
// the repository copy and state database are removed as well.
func (v *Vault) Forget(remoteURL string, purge bool) error {
	if strings.TrimSpace(remoteURL) == "" {
		return fmt.Errorf("%w: remote URL is required", kerrors.ErrInvalidInput)
	}
	p := locator.PlanRemote(v.cfg.CacheDir, remoteURL, v.cfg.Layout())

	if err := keys.Remove(p.KeyPath); err != nil {
		return err
	}
	if err := keyring.DeletePassphrase(p.RemoteID); err != nil {
		v.log.Debugf("Keyring delete failed: %v", err)
	}

	if !purge {
		return nil
	}

	if _, err := os.Stat(p.StatePath); err == nil {
		db, err := storage.Open(p.StatePath, v.cfg.LockTimeout.Duration)
		if err != nil {
			return err
		}
		defer db.Close()

		// Removed while the lock is held.
		if err := reposync.Remove(p.RepoDir); err != nil {
			return err
		}
		if err := os.Remove(p.StatePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove state: %w", err)
		}
		return nil
	}
	return reposync.Remove(p.RepoDir)
}

// Compact compacts the state database of a remote.
func (v *Vault) Compact(remoteURL string) error {
	p := locator.PlanRemote(v.cfg.CacheDir, remoteURL, v.cfg.Layout())
	if _, err := os.Stat(p.StatePath); err != nil {
		return fmt.Errorf("%w: %s", kerrors.ErrNotSynced, remoteURL)
	}

	db, err := storage.Open(p.StatePath, v.cfg.LockTimeout.Duration)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Compact()
}
