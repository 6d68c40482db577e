package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/sous/internal/locator"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(compactCmd)
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Compact the state database of a repository to reclaim unused space",
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

		statePath := locator.PlanRemote(cfg.CacheDir, url, cfg.Layout()).StatePath
		var sizeBefore int64
		if info, err := os.Stat(statePath); err == nil {
			sizeBefore = info.Size()
		}

		if err := v.Compact(url); err != nil {
			return err
		}

		info, err := os.Stat(statePath)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", statePath, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(info.Size()))
		return nil
	},
}
