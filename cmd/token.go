package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kasuganosora/codepals/config"
	mw "github.com/kasuganosora/codepals/middleware"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	var (
		host string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a host integration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if ttl <= 0 {
				ttl = cfg.Security.JWTTTLH
			}
			tok, err := mw.IssueToken(host, cfg.Security.JWTSecret, ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "name of the host the token is for")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default security.jwt_ttl_h)")
	_ = cmd.MarkFlagRequired("host")
	return cmd
}
