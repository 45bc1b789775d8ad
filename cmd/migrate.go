package main

import (
	"errors"

	"github.com/spf13/cobra"

	"gallery/internal/models"
	"gallery/internal/storage"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(false)

			cfg, err := models.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("database_url is not set")
			}

			// Connecting applies the embedded migrations.
			db, err := storage.NewStorage(cmd.Context(), cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			db.Close()
			return nil
		},
	}
}
