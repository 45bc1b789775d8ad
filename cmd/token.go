package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gallery/internal/models"
	"gallery/internal/server"
)

func newTokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator bearer token signed with auth_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := models.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			token, err := server.IssueToken(cfg.AuthSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "studio", "Operator name; each operator gets its own upload session")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}
