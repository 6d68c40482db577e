package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cached state of a repository (no passphrase required)",
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

		status, err := v.Status(cmd.Context(), url, packageArg())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Repository: %s\n", status.RemoteURL)
		fmt.Fprintf(out, "Remote ID:  %s\n", status.RemoteID)

		switch {
		case !status.KeyPresent:
			fmt.Fprintf(out, "Key:        not derived\n")
		case status.KeyError != nil:
			fmt.Fprintf(out, "Key:        invalid (%s)\n", status.KeyPath)
		default:
			fmt.Fprintf(out, "Key:        %s\n", status.KeyPath)
		}
		if status.InKeyring {
			fmt.Fprintf(out, "Passphrase: stored in keyring\n")
		}

		if !status.HasCopy {
			fmt.Fprintf(out, "Local copy: none\n")
		} else {
			fmt.Fprintf(out, "Local copy: %s (%s)\n", status.RepoDir, shortHead(status.Head))
		}
		if status.Locked {
			fmt.Fprintf(out, "State:      locked by a running fetch\n")
		}
		if status.LastSync != nil {
			fmt.Fprintf(out, "Last fetch: %s of %s on %s\n",
				status.LastSync.SyncedAt.Local().Format(time.RFC3339),
				status.LastSync.Artifact, status.LastSync.Branch)
		}

		for _, tool := range status.Tools {
			if tool.Err != nil {
				fmt.Fprintf(out, "Tool:       %s %s\n", tool.Name, color.RedString("unavailable"))
				continue
			}
			fmt.Fprintf(out, "Tool:       %s\n", tool.Version)
		}

		if status.PlaintextPath != "" {
			state := "absent"
			if status.PlaintextPresent {
				state = "present"
			}
			fmt.Fprintf(out, "Plaintext:  %s (%s)\n", status.PlaintextPath, state)
		}

		if status.HasCopy {
			fmt.Fprintln(out, "\nArtifacts:")
			if len(status.Artifacts) == 0 {
				fmt.Fprintln(out, "  (none)")
			}
			for _, a := range status.Artifacts {
				fmt.Fprintf(out, "  %s (%s)\n", a.Name, formatSize(a.Size))
			}
		}
		return nil
	},
}
