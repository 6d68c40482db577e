package cmd

import (
	"context"

	"github.com/illarion/sous/internal/config"
	"github.com/illarion/sous/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose    bool
	debug      bool
	configPath string
	gitURL     string
	branch     string
	pkgName    string

	Logger logging.Logger
	cfg    *config.Config

	rootCmd = &cobra.Command{
		Use:   "sous",
		Short: "Fetch and decrypt the Android release keystore shared through a git repository",
		Long: `sous keeps a local copy of a certificates repository, derives a key from
a shared passphrase once per remote, and decrypts the signing keystore
published in it. The path of the decrypted keystore is printed on stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			Logger = logging.Logger{
				Verbose: verbose,
				Debug:   debug,
				Out:     cmd.ErrOrStderr(),
				Err:     cmd.ErrOrStderr(),
			}

			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if branch != "" {
				c.Branch = branch
			}
			cfg = c

			Logger.Debugf("Using cache %s, branch %s", cfg.CacheDir, cfg.Branch)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/sous/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&gitURL, "git-url", "u", "", "certificates repository URL (env "+config.EnvGitURL+")")
	rootCmd.PersistentFlags().StringVarP(&branch, "branch", "b", "", "branch to sync (env "+config.EnvBranch+")")
	rootCmd.PersistentFlags().StringVarP(&pkgName, "package", "p", "", "artifact name, usually the app package (env "+config.EnvPackageName+")")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the root command with ctx and exits on error.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		HandleError(err)
	}
}

// resetGlobalState restores every flag to its default between test runs.
func resetGlobalState() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.PersistentFlags().VisitAll(reset)
		c.Flags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
	cfg = nil
}
