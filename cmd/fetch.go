package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/illarion/sous/internal/core"
	"github.com/illarion/sous/internal/crypto"
	kerrors "github.com/illarion/sous/internal/errors"
	"github.com/illarion/sous/internal/keyring"
	"github.com/illarion/sous/internal/passphrase"
	"github.com/spf13/cobra"
)

var saveToKeyring bool

func init() {
	fetchCmd.Flags().BoolVar(&saveToKeyring, "save-to-keyring", false, "store the passphrase in the OS keyring after a successful fetch")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:     "fetch",
	Aliases: []string{"pass"},
	Short:   "Sync the repository and decrypt the keystore, printing its path",
	Long: `Sync the certificates repository into the local cache and decrypt the
keystore of --package. The passphrase is only needed the first time a
repository is used; the derived key is cached afterwards.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, name, err := requireTarget()
		if err != nil {
			return err
		}

		src := passphraseSource(false)
		v, err := newVault(src)
		if err != nil {
			return err
		}

		// Ask before the spinner starts so the prompt stays readable.
		pass := passphrase.FromEnv()
		defer func() { crypto.ClearBytes(pass) }()
		p := v.Paths(url, name)
		if _, err := os.Stat(p.KeyPath); errors.Is(err, os.ErrNotExist) && len(pass) == 0 {
			pass, err = passphrase.Resolve(cmd.Context(), src, passphrase.Request{
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
		}

		s, cleanup := startSpinner("Fetching "+name+"...", cmd.ErrOrStderr())
		res, err := v.FetchAndDecrypt(cmd.Context(), core.FetchRequest{
			RemoteURL:    url,
			ArtifactName: name,
			Passphrase:   pass,
		})
		if err != nil {
			s.FinalMSG = failure("Failed to fetch " + color.YellowString(name))
			cleanup()
			return err
		}

		msg := "Decrypted " + color.YellowString(name)
		if res.Cloned {
			msg += " (cloned " + shortHead(res.Head) + ")"
		} else if res.Previous != res.Head {
			msg += " (" + shortHead(res.Previous) + " -> " + shortHead(res.Head) + ")"
		}
		s.FinalMSG = success(msg)
		cleanup()

		for _, c := range res.Changes {
			Logger.Infof("%s", c)
		}

		if saveToKeyring && len(pass) > 0 {
			if err := keyring.SavePassphrase(res.RemoteID, string(pass)); err != nil {
				Logger.Warnf("Failed to save passphrase to keyring: %v", err)
			} else {
				Logger.Infof("Passphrase saved to keyring")
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), res.PlaintextPath)
		return nil
	},
}

func shortHead(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
