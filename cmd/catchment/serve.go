package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/catchment-service/internal/app"
	"github.com/yungbote/catchment-service/internal/config"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve catchment requests over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			if err := a.Run(ctx); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			return nil
		},
	}
}
