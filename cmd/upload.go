package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gallery/internal/bucket"
	"gallery/internal/models"
	"gallery/internal/upload"
)

func newUploadCmd(configPath *string) *cobra.Command {
	var (
		kind     string
		category string
		zoom     float64
		pan      models.Pan
	)

	cmd := &cobra.Command{
		Use:   "upload <image>",
		Short: "Crop a local image and add it to the catalog",
		Example: `  # Add a Bridal portfolio image, zoomed in and nudged left
  gallery upload --bucket portfolio --category Bridal --zoom 1.5 --pan-x -0.1 hands.jpg

  # Replace the hero banner
  gallery upload --bucket hero banner.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(false)

			cfg, err := models.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			b, err := bucket.Parse(kind, category)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.memory != nil {
				logger.Warn("uploading to the in-memory store; the asset is lost on exit")
			}

			sess := upload.NewSession("cli")
			if _, err := a.uploads.Choose(sess, data, filepath.Base(args[0]), b); err != nil {
				return err
			}
			rect, err := a.uploads.Adjust(sess, pan, zoom)
			if err != nil {
				return err
			}
			logger.Info("cropping", slog.Any("rect", rect))

			res, err := a.uploads.Confirm(cmd.Context(), sess)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(res.Asset, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "bucket", "portfolio", "Destination bucket: hero or portfolio")
	cmd.Flags().StringVar(&category, "category", "", "Portfolio category (Bridal, Guest, Festival)")
	cmd.Flags().Float64Var(&zoom, "zoom", 1, "Crop zoom, 1 to 3")
	cmd.Flags().Float64Var(&pan.X, "pan-x", 0, "Horizontal pan as a fraction of the width, -0.5 to 0.5")
	cmd.Flags().Float64Var(&pan.Y, "pan-y", 0, "Vertical pan as a fraction of the height, -0.5 to 0.5")
	return cmd
}
