package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/illarion/sous/internal/crypto"
	kerrors "github.com/illarion/sous/internal/errors"
	"github.com/illarion/sous/internal/keyring"
	"github.com/illarion/sous/internal/keys"
	"github.com/illarion/sous/internal/locator"
	"github.com/illarion/sous/internal/passphrase"
	"github.com/spf13/cobra"
)

// errPassphraseMismatch means the passphrase does not derive the cached key.
var errPassphraseMismatch = errors.New("passphrase does not match the cached key")

func init() {
	keyringCmd.AddCommand(keyringSaveCmd)
	keyringCmd.AddCommand(keyringDeleteCmd)
	keyringCmd.AddCommand(keyringStatusCmd)
	rootCmd.AddCommand(keyringCmd)
}

var keyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Manage the repository passphrase in the OS keyring",
}

var keyringSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the passphrase to the OS keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := requireRemote()
		if err != nil {
			return err
		}
		p := locator.PlanRemote(cfg.CacheDir, url, cfg.Layout())

		src := passphrase.Chain{passphrase.Env(passphrase.EnvVar), passphrase.Terminal{}}
		pass, err := passphrase.Resolve(cmd.Context(), src, passphrase.Request{
			Prompt:  fmt.Sprintf("Passphrase for %s: ", url),
			Secret:  true,
			Account: p.RemoteID,
		})
		if errors.Is(err, passphrase.ErrUnavailable) {
			return kerrors.ErrMissingPassphrase
		}
		if err != nil {
			return err
		}
		defer crypto.ClearBytes(pass)

		if err := verifyAgainstKey(pass, p); err != nil {
			return err
		}

		if err := keyring.SavePassphrase(p.RemoteID, string(pass)); err != nil {
			return fmt.Errorf("failed to save to keyring: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Passphrase saved to keyring")
		return nil
	},
}

// verifyAgainstKey checks pass against an already cached key. Without a
// cached key there is nothing to compare with.
func verifyAgainstKey(pass []byte, p locator.Paths) error {
	if _, err := os.Stat(p.KeyPath); err != nil {
		return nil
	}
	cached, err := keys.Validate(p.KeyPath)
	if err != nil {
		return err
	}
	derived, err := keys.Derivation{Algorithm: cfg.KDF.Algorithm, Iterations: cfg.KDF.Iterations}.Derive(pass, p.RemoteID)
	if err != nil {
		return err
	}
	if !crypto.ConstantTimeCompare([]byte(cached), []byte(derived)) {
		return fmt.Errorf("%w (derived with kdf %q; if [kdf] changed since the key was cached, run 'sous forget' first)",
			errPassphraseMismatch, cfg.KDF.Algorithm)
	}
	return nil
}

var keyringDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the passphrase from the OS keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := requireRemote()
		if err != nil {
			return err
		}
		id := locator.RemoteID(url)

		if !keyring.HasPassphrase(id) {
			fmt.Fprintln(cmd.OutOrStdout(), "No passphrase stored in keyring")
			return nil
		}
		if err := keyring.DeletePassphrase(id); err != nil {
			return fmt.Errorf("failed to delete from keyring: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Passphrase removed from keyring")
		return nil
	},
}

var keyringStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the passphrase is stored in the OS keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := requireRemote()
		if err != nil {
			return err
		}

		if keyring.HasPassphrase(locator.RemoteID(url)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Passphrase: stored in keyring")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Passphrase: not stored")
		}
		return nil
	},
}
