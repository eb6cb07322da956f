package main

import (
	"context"
	"fmt"

	"github.com/LavaJover/shvark-checkout-service/internal/app/background"
	"github.com/LavaJover/shvark-checkout-service/internal/app/setup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one expiry sweep and stuck-verification recovery, then exit",
		Long: `Run a single pass of the background sweep.

Useful from cron when the service runs without the serve command's scheduler,
or to drain a backlog after an outage.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			deps, err := setup.InitializeDependencies(ctx, cfg, prometheus.NewRegistry())
			if err != nil {
				return fmt.Errorf("init dependencies: %w", err)
			}
			defer deps.Close()

			ucs := setup.InitializeUseCases(deps)
			tasks := background.NewBackgroundTasks(ucs.PaymentUsecase, nil, nil, background.Config{})
			return tasks.RunSweepOnce(ctx)
		},
	}
}
