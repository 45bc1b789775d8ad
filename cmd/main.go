package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Portfolio gallery service: asset catalog, crop pipeline and contact relay",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is fine.
			_ = godotenv.Load()
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")

	cmd.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newUploadCmd(&configPath),
		newTokenCmd(&configPath),
	)
	return cmd
}
