// Package cmd implements the codepals command line.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

type rootOptions struct {
	configPath string
	verbose    bool
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "codepals",
		Short:         "codepals: companion creatures that grow while you code",
		Long:          "codepals runs the companion progression engine behind an HTTP API and manages its saved game from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file (CODEPALS_* env vars override it)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(opts),
		newStatusCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newResetCmd(opts),
		newBackupCmd(opts),
		newTokenCmd(opts),
	)
	return rootCmd
}
