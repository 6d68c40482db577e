package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	kerrors "github.com/illarion/sous/internal/errors"
)

// OpenSSL delegates to the openssl binary. The key is passed on stdin so it
// never shows up in the process list.
type OpenSSL struct {
	// Binary defaults to "openssl".
	Binary string
}

func (o OpenSSL) binary() string {
	if o.Binary != "" {
		return o.Binary
	}
	return "openssl"
}

// Check verifies the binary exists and is OpenSSL rather than a fork with
// different defaults.
func (o OpenSSL) Check(ctx context.Context) (string, error) {
	bin, err := exec.LookPath(o.binary())
	if err != nil {
		return "", fmt.Errorf("%w: %s not found in PATH", kerrors.ErrToolUnavailable, o.binary())
	}

	out, err := exec.CommandContext(ctx, bin, "version").Output()
	if err != nil {
		return "", fmt.Errorf("%w: %s version: %w", kerrors.ErrToolUnavailable, bin, err)
	}
	version := strings.TrimSpace(string(out))
	if !strings.HasPrefix(version, "OpenSSL") {
		return "", fmt.Errorf("%w: OpenSSL is required, found %q", kerrors.ErrToolUnavailable, version)
	}
	return version, nil
}

func (o OpenSSL) run(ctx context.Context, key []byte, args ...string) error {
	if _, err := o.Check(ctx); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, o.binary(), args...)
	cmd.Stdin = bytes.NewReader(append(append([]byte(nil), key...), '\n'))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("openssl exited with status %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("failed to run openssl: %w", err)
	}
	return nil
}

func (o OpenSSL) Decrypt(ctx context.Context, inPath, outPath string, key []byte) error {
	err := o.run(ctx, key, "enc", "-d", "-aes-256-cbc", "-pbkdf2", "-in", inPath, "-out", outPath, "-pass", "stdin")
	if err != nil && !errors.Is(err, kerrors.ErrToolUnavailable) {
		return fmt.Errorf("%w: %s: %w", kerrors.ErrDecryptionFailed, inPath, err)
	}
	return err
}

func (o OpenSSL) Encrypt(ctx context.Context, inPath, outPath string, key []byte) error {
	return o.run(ctx, key, "enc", "-aes-256-cbc", "-pbkdf2", "-salt", "-in", inPath, "-out", outPath, "-pass", "stdin")
}
