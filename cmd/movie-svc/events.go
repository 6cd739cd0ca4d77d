package main

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zhy3800/MovieWebsite/internal/events"
	"github.com/zhy3800/MovieWebsite/pkg/redis"
)

func newEventsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect domain events",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "tail",
		Short: "Print domain events as JSON lines until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			if !cfg.Redis.Enabled {
				return errors.New("redis is disabled; set redis.enabled=true")
			}

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := redis.NewClient(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			return events.NewSubscriber(client, log).Run(ctx, func(_ context.Context, msg *events.Message) error {
				return enc.Encode(msg)
			})
		},
	})

	return cmd
}
