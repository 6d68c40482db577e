package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var purge bool

func init() {
	forgetCmd.Flags().BoolVar(&purge, "purge", false, "also remove the local copy and its state")
	rootCmd.AddCommand(forgetCmd)
}

var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Remove the cached key of a repository",
	Long: `Remove the cached key and keyring entry of a repository so the next
fetch asks for the passphrase again. Decrypted keystores are left alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := requireRemote()
		if err != nil {
			return err
		}

		v, err := newVault(nil)
		if err != nil {
			return err
		}

		if err := v.Forget(url, purge); err != nil {
			return err
		}

		if purge {
			fmt.Fprint(cmd.OutOrStdout(), success("Forgot key and local copy of "+url))
		} else {
			fmt.Fprint(cmd.OutOrStdout(), success("Forgot key of "+url))
		}
		return nil
	},
}
