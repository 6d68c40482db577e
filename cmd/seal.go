package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/illarion/sous/internal/core"
	"github.com/illarion/sous/internal/crypto"
	"github.com/illarion/sous/internal/passphrase"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sealCmd)
}

var sealCmd = &cobra.Command{
	Use:   "seal <keystore>",
	Short: "Encrypt a keystore into the local copy of the repository",
	Long: `Encrypt a plaintext keystore into the artifact location of --package in
the local copy of the repository. Commit and push the result to publish it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url, name, err := requireTarget()
		if err != nil {
			return err
		}

		v, err := newVault(passphraseSource(true))
		if err != nil {
			return err
		}

		pass := passphrase.FromEnv()
		defer crypto.ClearBytes(pass)

		encPath, err := v.Seal(cmd.Context(), core.SealRequest{
			RemoteURL:    url,
			ArtifactName: name,
			InputPath:    args[0],
			Passphrase:   pass,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, success("Sealed "+color.YellowString(args[0])))
		fmt.Fprintf(out, "%s Commit and push %s to publish it\n", color.CyanString("→"), encPath)
		return nil
	},
}
