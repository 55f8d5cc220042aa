package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the saved game as a JSON document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp(root.configPath, root.verbose)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			text, err := a.gateway.ExportText(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			}
			if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", out)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newImportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the saved game with an exported document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			a, err := wireApp(root.configPath, root.verbose)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			sess, err := a.gateway.ImportText(cmd.Context(), string(data))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported player %s with %d companions\n",
				sess.Player.PlayerID, sess.CompanionCount())
			return err
		},
	}
}

var errResetNotConfirmed = errors.New("reset deletes the saved game; pass --yes to confirm")

func newResetCmd(root *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the saved game",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errResetNotConfirmed
			}
			a, err := wireApp(root.configPath, root.verbose)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if err := a.gateway.Clear(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "saved game deleted")
			return err
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newBackupCmd(root *rootOptions) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the saved game to a timestamped backup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp(root.configPath, root.verbose)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if !list {
				key, err := a.gateway.CreateBackup(cmd.Context())
				if err != nil {
					return err
				}
				msg := "nothing to back up"
				if key != "" {
					msg = "created " + key
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), msg); err != nil {
					return err
				}
			}
			keys, err := a.gateway.Backups(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range keys {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), k); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "only list existing backups")
	return cmd
}
