package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"

	"gallery/internal/models"
	"gallery/internal/relay"
	"gallery/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gallery HTTP API and the contact relay consumer",
		Example: `  # Serve with config.yaml from the working directory
  gallery serve

  # Override the listen address
  gallery serve --addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(true)

			cfg, err := models.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ServerAddr = addr
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			deps := server.Deps{
				Catalog: a.catalog,
				Uploads: a.uploads,
				Health:  a.health,
			}
			if a.memory != nil {
				deps.Files = a.memory
			}

			consumerDone := make(chan struct{})
			if cfg.Kafka.Broker != "" {
				producer := &kafka.Writer{
					Addr:     kafka.TCP(cfg.Kafka.Broker),
					Topic:    cfg.Kafka.Topic,
					Balancer: &kafka.Hash{},
					Async:    true,
					Completion: func(msgs []kafka.Message, err error) {
						if err != nil {
							logger.Error("failed to publish inquiries", slog.Int("count", len(msgs)), slog.Any("error", err))
						}
					},
				}
				defer producer.Close()
				deps.Relay = relay.NewProducer(producer, logger)

				consumer := kafka.NewReader(kafka.ReaderConfig{
					Brokers: []string{cfg.Kafka.Broker},
					Topic:   cfg.Kafka.Topic,
					GroupID: cfg.Kafka.GroupID,
				})
				defer consumer.Close()

				var deliverer relay.Deliverer = relay.LogDeliverer{Logger: logger}
				if cfg.SMTP.Addr != "" {
					deliverer = relay.NewSMTPDeliverer(cfg.SMTP)
				}

				go func() {
					defer close(consumerDone)
					if err := relay.Consume(ctx, consumer, deliverer, logger); err != nil {
						logger.Error("contact relay stopped", slog.Any("error", err))
					}
				}()
			} else {
				close(consumerDone)
				logger.Warn("no kafka broker configured, contact form is disabled")
			}

			srv := server.NewServer(cfg, deps, logger)

			serverErr := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case err = <-serverErr:
				logger.Error("server failed", slog.Any("error", err))
			}

			cancel()
			shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()
			if stopErr := srv.Stop(shutdownCtx); stopErr != nil {
				err = errors.Join(err, stopErr)
			}
			<-consumerDone
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server_addr)")
	return cmd
}
