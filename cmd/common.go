package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/illarion/sous/internal/config"
	"github.com/illarion/sous/internal/core"
	kerrors "github.com/illarion/sous/internal/errors"
	"github.com/illarion/sous/internal/passphrase"
)

// remoteURL returns the repository URL from the flag or configuration.
func remoteURL() string {
	if gitURL != "" {
		return gitURL
	}
	return cfg.RemoteURL
}

// packageArg returns the artifact name from the flag or configuration.
func packageArg() string {
	if pkgName != "" {
		return pkgName
	}
	return cfg.PackageName
}

func requireRemote() (string, error) {
	url := remoteURL()
	if url == "" {
		return "", fmt.Errorf("%w: no repository URL, use --git-url or %s", kerrors.ErrInvalidInput, config.EnvGitURL)
	}
	return url, nil
}

func requireTarget() (string, string, error) {
	url, err := requireRemote()
	if err != nil {
		return "", "", err
	}
	name := packageArg()
	if name == "" {
		return "", "", fmt.Errorf("%w: no package name, use --package or %s", kerrors.ErrInvalidInput, config.EnvPackageName)
	}
	return url, name, nil
}

// passphraseSource is environment, then keyring when enabled, then the
// terminal. With confirm the terminal asks twice.
func passphraseSource(confirm bool) passphrase.Source {
	var term passphrase.Source = passphrase.Terminal{}
	if confirm {
		term = passphrase.Confirm{Source: term}
	}

	chain := passphrase.Chain{passphrase.Env(passphrase.EnvVar)}
	if cfg.Keyring.Enabled {
		chain = append(chain, passphrase.Keyring{})
	}
	return append(chain, term)
}

func newVault(src passphrase.Source) (*core.Vault, error) {
	return core.New(cfg, src, Logger)
}

// startSpinner shows progress on stderr unless verbose output is on.
// The returned cleanup stops it and prints FinalMSG.
func startSpinner(message string, w io.Writer) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	if err := s.Color("cyan"); err != nil {
		Logger.Debugf("Failed to set spinner color: %v", err)
	}

	if !verbose && !debug {
		s.Start()
	}

	cleanup := func() {
		if s.Active() {
			s.Stop()
		} else if s.FinalMSG != "" {
			fmt.Fprint(w, s.FinalMSG)
		}
	}
	return s, cleanup
}

func success(msg string) string {
	return color.GreenString("✓") + " " + msg + "\n"
}

func failure(msg string) string {
	return color.RedString("✗") + " " + msg + "\n"
}

// describeError returns the message and remediation hint for err.
func describeError(err error) (string, string) {
	switch {
	case errors.Is(err, context.Canceled):
		return "interrupted", ""
	case errors.Is(err, kerrors.ErrInvalidInput):
		return err.Error(), "Run 'sous --help' for usage"
	case errors.Is(err, kerrors.ErrMissingPassphrase):
		return "no passphrase available to derive the key",
			"Set " + passphrase.EnvVar + ", store it with 'sous keyring save', or run in a terminal"
	case errors.Is(err, passphrase.ErrMismatch):
		return "passphrases do not match", ""
	case errors.Is(err, kerrors.ErrCorruptKey):
		return err.Error(), "Run 'sous forget' and try again"
	case errors.Is(err, kerrors.ErrLocked):
		return "another sous process is syncing this repository", "Wait for it to finish or raise lock_timeout"
	case errors.Is(err, kerrors.ErrCloneFailed), errors.Is(err, kerrors.ErrSyncFailed):
		return err.Error(), "Check the repository URL, branch and your git credentials"
	case errors.Is(err, kerrors.ErrArtifactNotFound):
		return err.Error(), "Publish it with 'sous seal <keystore>' and push the repository"
	case errors.Is(err, kerrors.ErrToolUnavailable):
		return err.Error(), "Install the tool or set [cipher] backend = \"native\""
	case errors.Is(err, kerrors.ErrDecryptionFailed):
		return err.Error(), "Wrong passphrase? Run 'sous forget' to derive the key again"
	case errors.Is(err, kerrors.ErrNotSynced):
		return err.Error(), "Run 'sous fetch' first"
	default:
		return err.Error(), ""
	}
}

// HandleError prints err with a hint and exits.
func HandleError(err error) {
	msg, hint := describeError(err)
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("error:"), msg)
	if hint != "" {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.CyanString("→"), hint)
	}
	os.Exit(1)
}

func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
