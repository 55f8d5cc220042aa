package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kasuganosora/codepals/save"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "codepals %s (save format %s)\n", Version, save.CurrentVersion)
			return err
		},
	}
}
