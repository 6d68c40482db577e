package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(completionCmd)
}

var completionCmd = &cobra.Command{
	Use:   "completion <bash|zsh|fish>",
	Short: "Output shell completion script",
	Long: `Output a shell completion script.

  bash:  sous completion bash > /etc/bash_completion.d/sous
  zsh:   sous completion zsh > "${fpath[1]}/_sous"
  fish:  sous completion fish > ~/.config/fish/completions/sous.fish`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish"},
	// Completion needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(out, true)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		default:
			return fmt.Errorf("unknown shell: %s (supported: bash, zsh, fish)", args[0])
		}
	},
}
