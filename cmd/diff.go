package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/illarion/sous/internal/core"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(diffCmd)
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Sync the repository and list encrypted artifacts changed since the last fetch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := requireRemote()
		if err != nil {
			return err
		}

		v, err := newVault(nil)
		if err != nil {
			return err
		}

		changes, res, err := v.Changes(cmd.Context(), url, "")
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(changes) == 0 {
			fmt.Fprintf(out, "No changes since last fetch (%s)\n", shortHead(res.Head))
			return nil
		}
		for _, c := range changes {
			switch c.Kind {
			case core.ChangeAdded:
				fmt.Fprintf(out, "%s %s\n", color.GreenString("+"), c.Name)
			case core.ChangeRemoved:
				fmt.Fprintf(out, "%s %s\n", color.RedString("-"), c.Name)
			default:
				fmt.Fprintf(out, "%s %s\n", color.YellowString("~"), c.Name)
			}
		}
		return nil
	},
}
