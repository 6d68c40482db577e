package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/illarion/sous/internal/crypto"
	kerrors "github.com/illarion/sous/internal/errors"
)

// Native encrypts and decrypts in process.
type Native struct {
	// Format selects the envelope written by Encrypt. Decrypt detects it.
	Format crypto.Format
	// Iterations for the native envelope; zero selects the default.
	Iterations int
}

func (n Native) Decrypt(_ context.Context, inPath, outPath string, key []byte) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inPath, err)
	}

	plain, err := crypto.Open(key, data)
	if err != nil {
		if errors.Is(err, crypto.ErrAuthFailed) {
			return fmt.Errorf("%w: %s: wrong key or corrupted file", kerrors.ErrDecryptionFailed, inPath)
		}
		return fmt.Errorf("%w: %s: %w", kerrors.ErrDecryptionFailed, inPath, err)
	}
	defer crypto.ClearBytes(plain)

	if err := os.WriteFile(outPath, plain, 0600); err != nil {
		return fmt.Errorf("failed to write plaintext: %w", err)
	}
	return nil
}

func (n Native) Encrypt(_ context.Context, inPath, outPath string, key []byte) error {
	plain, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inPath, err)
	}
	defer crypto.ClearBytes(plain)

	var sealed []byte
	switch n.Format {
	case crypto.FormatOpenSSL:
		sealed, err = crypto.SealOpenSSL(key, plain)
	default:
		sealed, err = crypto.Seal(key, plain, n.Iterations)
	}
	if err != nil {
		return fmt.Errorf("failed to seal: %w", err)
	}

	if err := os.WriteFile(outPath, sealed, 0644); err != nil {
		return fmt.Errorf("failed to write encrypted file: %w", err)
	}
	return nil
}
