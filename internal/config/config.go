package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	kerrors "github.com/illarion/sous/internal/errors"
	"github.com/illarion/sous/internal/keys"
	"github.com/illarion/sous/internal/locator"
	"github.com/illarion/sous/internal/security"
)

// Environment variables read by Load.
const (
	EnvCacheDir    = "SOUS_CACHE_DIR"
	EnvBranch      = "SOUS_GIT_BRANCH"
	EnvGitURL      = "SOUS_GIT_URL"
	EnvPackageName = "SOUS_PACKAGE_NAME"
)

const (
	DefaultBranch      = "master"
	DefaultLockTimeout = 30 * time.Second

	CipherNative  = "native"
	CipherOpenSSL = "openssl"

	FormatNative  = "native"
	FormatOpenSSL = "openssl"

	TransportGoGit = "gogit"
	TransportCLI   = "cli"
)

// Config is the full set of settings.
type Config struct {
	CacheDir    string   `toml:"cache_dir"`
	Branch      string   `toml:"branch"`
	RemoteURL   string   `toml:"remote_url"`
	PackageName string   `toml:"package_name"`
	AppDir      string   `toml:"app_dir"`
	Extension   string   `toml:"extension"`
	LockTimeout Duration `toml:"lock_timeout"`

	KDF     KDFConfig     `toml:"kdf"`
	Cipher  CipherConfig  `toml:"cipher"`
	Git     GitConfig     `toml:"git"`
	Keyring KeyringConfig `toml:"keyring"`
}

// KDFConfig selects how new keys are derived.
type KDFConfig struct {
	Algorithm  string `toml:"algorithm"`
	Iterations int    `toml:"iterations"`
}

// CipherConfig selects the cipher backend and the format `seal` writes.
type CipherConfig struct {
	Backend    string `toml:"backend"`
	Format     string `toml:"format"`
	Iterations int    `toml:"iterations"`
}

// GitConfig selects the transport and its credentials.
type GitConfig struct {
	Transport string `toml:"transport"`
	SSHKey    string `toml:"ssh_key"`
	SSHUser   string `toml:"ssh_user"`
	Username  string `toml:"username"`
	// TokenEnv names the environment variable holding an HTTP token.
	TokenEnv string `toml:"token_env"`
}

// KeyringConfig controls the OS keyring passphrase source.
type KeyringConfig struct {
	Enabled bool `toml:"enabled"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cacheDir := ".sous"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".sous")
	}

	return &Config{
		CacheDir:    cacheDir,
		Branch:      DefaultBranch,
		AppDir:      locator.DefaultLayout.AppDir,
		Extension:   locator.DefaultLayout.Extension,
		LockTimeout: Duration{DefaultLockTimeout},
		KDF:         KDFConfig{Algorithm: keys.AlgSHA512},
		Cipher:      CipherConfig{Backend: CipherNative, Format: FormatNative},
		Git:         GitConfig{Transport: TransportGoGit, SSHUser: "git"},
		Keyring:     KeyringConfig{Enabled: true},
	}
}

// DefaultPath returns the location of the config file.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "sous", "config.toml"), nil
}

// Load reads path (DefaultPath when empty) on top of the defaults, applies
// environment overrides and validates the result. A missing file is fine.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if err := LoadTOML(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv(EnvBranch); v != "" {
		c.Branch = v
	}
	if v := os.Getenv(EnvGitURL); v != "" {
		c.RemoteURL = v
	}
	if v := os.Getenv(EnvPackageName); v != "" {
		c.PackageName = v
	}
}

// Validate checks enumerations and paths and resolves the cache root to an
// absolute path.
func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return fmt.Errorf("%w: cache_dir is empty", kerrors.ErrInvalidInput)
	}
	abs, err := filepath.Abs(c.CacheDir)
	if err != nil {
		return fmt.Errorf("%w: cache_dir: %w", kerrors.ErrInvalidInput, err)
	}
	c.CacheDir = abs

	if c.Branch == "" {
		c.Branch = DefaultBranch
	}

	if _, err := security.ValidateRelative(c.AppDir); err != nil {
		return fmt.Errorf("%w: app_dir: %w", kerrors.ErrInvalidInput, err)
	}

	if err := (keys.Derivation{Algorithm: c.KDF.Algorithm}).Validate(); err != nil {
		return err
	}

	switch c.Cipher.Backend {
	case CipherNative, CipherOpenSSL:
	default:
		return fmt.Errorf("%w: unknown cipher backend %q", kerrors.ErrInvalidInput, c.Cipher.Backend)
	}
	switch c.Cipher.Format {
	case FormatNative, FormatOpenSSL:
	default:
		return fmt.Errorf("%w: unknown cipher format %q", kerrors.ErrInvalidInput, c.Cipher.Format)
	}

	switch c.Git.Transport {
	case TransportGoGit, TransportCLI:
	default:
		return fmt.Errorf("%w: unknown git transport %q", kerrors.ErrInvalidInput, c.Git.Transport)
	}

	if c.LockTimeout.Duration < 0 {
		return fmt.Errorf("%w: lock_timeout must not be negative", kerrors.ErrInvalidInput)
	}
	return nil
}

// Layout returns the artifact layout described by the config.
func (c *Config) Layout() locator.Layout {
	return locator.Layout{AppDir: c.AppDir, Extension: c.Extension}
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := SaveTOML(path, c); err != nil {
		return fmt.Errorf("failed to save config %s: %w", path, err)
	}
	return nil
}
