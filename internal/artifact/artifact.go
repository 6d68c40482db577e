package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	kerrors "github.com/illarion/sous/internal/errors"
	"github.com/illarion/sous/internal/keys"
	"github.com/illarion/sous/internal/logging"
)

// Cipher transforms one file into another using key material.
type Cipher interface {
	Decrypt(ctx context.Context, inPath, outPath string, key []byte) error
	Encrypt(ctx context.Context, inPath, outPath string, key []byte) error
}

// Engine decrypts and encrypts artifacts with a Cipher.
type Engine struct {
	Cipher Cipher
	Log    logging.Logger
}

// NewEngine returns an Engine using c.
func NewEngine(c Cipher, log logging.Logger) *Engine {
	return &Engine{Cipher: c, Log: log}
}

// Decrypt regenerates plaintextPath from encryptedPath with the key cached
// at keyPath.
func (e *Engine) Decrypt(ctx context.Context, encryptedPath, plaintextPath, keyPath string) error {
	if err := removeIfExists(plaintextPath); err != nil {
		return fmt.Errorf("failed to remove stale plaintext: %w", err)
	}

	if _, err := os.Stat(encryptedPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s; run the publish/prep step first (sous seal) and push it",
				kerrors.ErrArtifactNotFound, encryptedPath)
		}
		return fmt.Errorf("failed to stat %s: %w", encryptedPath, err)
	}

	key, err := keys.Validate(keyPath)
	if err != nil {
		return err
	}

	e.Log.Debugf("Decrypting %s", encryptedPath)
	err = e.writeAtomic(plaintextPath, func(tmp string) error {
		return e.Cipher.Decrypt(ctx, encryptedPath, tmp, []byte(key))
	})
	if err != nil {
		if errors.Is(err, kerrors.ErrDecryptionFailed) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", kerrors.ErrDecryptionFailed, encryptedPath, err)
	}

	e.Log.Infof("Decrypted %s", filepath.Base(plaintextPath))
	return nil
}

// Encrypt produces encryptedPath from plaintextPath, replacing any previous
// encrypted file atomically.
func (e *Engine) Encrypt(ctx context.Context, plaintextPath, encryptedPath, keyPath string) error {
	if _, err := os.Stat(plaintextPath); err != nil {
		return fmt.Errorf("%w: %s: %w", kerrors.ErrInvalidInput, plaintextPath, err)
	}

	key, err := keys.Validate(keyPath)
	if err != nil {
		return err
	}

	e.Log.Debugf("Encrypting %s", plaintextPath)
	err = e.writeAtomic(encryptedPath, func(tmp string) error {
		return e.Cipher.Encrypt(ctx, plaintextPath, tmp, []byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", plaintextPath, err)
	}

	e.Log.Infof("Encrypted %s", filepath.Base(encryptedPath))
	return nil
}

// writeAtomic reserves a temp file next to target, lets fill write it and
// renames it over target. The temp file is removed on every failure.
func (e *Engine) writeAtomic(target string, fill func(tmp string) error) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()
	f.Close()
	defer os.Remove(tmp)

	if err := fill(tmp); err != nil {
		return err
	}

	if _, err := os.Stat(tmp); err != nil {
		return fmt.Errorf("cipher produced no output: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", target, err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// FileHash returns the hex SHA-256 of a file.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
