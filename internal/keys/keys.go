package keys

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/illarion/sous/internal/crypto"
	kerrors "github.com/illarion/sous/internal/errors"
	"github.com/illarion/sous/internal/passphrase"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// KeyLen is the length of a valid key file in hex characters.
const KeyLen = 2 * sha512.Size

const (
	AlgSHA512       = "sha512"
	AlgPBKDF2SHA512 = "pbkdf2-sha512"
	AlgArgon2id     = "argon2id"

	DefaultPBKDF2Iters = 210000
	DefaultArgon2Time  = 3
	argon2MemoryKiB    = 64 * 1024
	argon2Threads      = 4
	saltPrefix         = "sous:"
)

// Derivation selects how a passphrase is turned into key material.
type Derivation struct {
	Algorithm  string
	Iterations int
}

// Validate checks the algorithm name.
func (d Derivation) Validate() error {
	switch d.Algorithm {
	case "", AlgSHA512, AlgPBKDF2SHA512, AlgArgon2id:
		return nil
	default:
		return fmt.Errorf("%w: unknown key derivation %q", kerrors.ErrInvalidInput, d.Algorithm)
	}
}

// Derive returns the hex key for a passphrase. The salt is bound to the
// remote, so the same passphrase and remote always give the same key.
func (d Derivation) Derive(pass []byte, remoteID string) (string, error) {
	salt := []byte(saltPrefix + remoteID)

	var raw []byte
	switch d.Algorithm {
	case "", AlgSHA512:
		sum := sha512.Sum512(pass)
		raw = sum[:]
	case AlgPBKDF2SHA512:
		iters := d.Iterations
		if iters <= 0 {
			iters = DefaultPBKDF2Iters
		}
		raw = pbkdf2.Key(pass, salt, iters, sha512.Size, sha512.New)
	case AlgArgon2id:
		t := d.Iterations
		if t <= 0 {
			t = DefaultArgon2Time
		}
		raw = argon2.IDKey(pass, salt, uint32(t), argon2MemoryKiB, argon2Threads, sha512.Size)
	default:
		return "", d.Validate()
	}
	defer crypto.ClearBytes(raw)

	return hex.EncodeToString(raw), nil
}

// Deriver produces cached keys on demand.
type Deriver struct {
	Source     passphrase.Source
	Derivation Derivation
}

// EnsureKey makes sure keyPath holds a key. When the file already exists
// nothing is read, prompted or written. It reports whether a key was created.
func (d *Deriver) EnsureKey(ctx context.Context, keyPath, remoteID string, req passphrase.Request) (bool, error) {
	if _, err := os.Stat(keyPath); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat key file: %w", err)
	}

	if err := d.Derivation.Validate(); err != nil {
		return false, err
	}

	if req.Account == "" {
		req.Account = remoteID
	}
	pass, err := passphrase.Resolve(ctx, d.Source, req)
	if errors.Is(err, passphrase.ErrUnavailable) {
		return false, kerrors.ErrMissingPassphrase
	}
	if err != nil {
		return false, err
	}
	defer crypto.ClearBytes(pass)
	if len(pass) == 0 {
		return false, kerrors.ErrMissingPassphrase
	}

	key, err := d.Derivation.Derive(pass, remoteID)
	if err != nil {
		return false, err
	}

	if err := writeKeyFile(keyPath, key); err != nil {
		return false, err
	}
	return true, nil
}

// Validate reads the key file and returns its trimmed contents.
func Validate(keyPath string) (string, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return "", fmt.Errorf("failed to read key file: %w", err)
	}

	key := strings.TrimSpace(string(data))
	if len(key) != KeyLen {
		return "", corrupt(keyPath, fmt.Sprintf("expected %d characters, found %d", KeyLen, len(key)))
	}
	if _, err := hex.DecodeString(key); err != nil {
		return "", corrupt(keyPath, "not hexadecimal")
	}
	return key, nil
}

func corrupt(keyPath, reason string) error {
	return fmt.Errorf("%w: %s (%s); delete it with `sous forget` or `rm %s` and retry",
		kerrors.ErrCorruptKey, keyPath, reason, keyPath)
}

// writeKeyFile writes via a temp file in the same directory and renames it
// into place, so readers see either no key or a whole key.
func writeKeyFile(path, key string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set key file permissions: %w", err)
	}
	if _, err := tmp.WriteString(key); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close key file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to install key file: %w", err)
	}
	return nil
}

// Remove deletes a cached key. A missing key is not an error.
func Remove(keyPath string) error {
	if err := os.Remove(keyPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove key file: %w", err)
	}
	return nil
}
