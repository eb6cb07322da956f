package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/LavaJover/shvark-checkout-service/internal/app/setup"
	"github.com/LavaJover/shvark-checkout-service/internal/delivery/http/dto/payment/response"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [tx_ref]",
		Short: "Reconcile one transaction with the gateway and print it",
		Example: `  checkout-service verify tkt-5f0c2b6e1f0e4d7c9a3b8e2d4c6a1f90
  checkout-service verify order-42 --config config/local.yaml`,
		Args: cobra.ExactArgs(1),
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
			tx, err := ucs.PaymentUsecase.Verify(ctx, args[0], domain.TriggerManualPoll)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(response.FromTransaction(tx))
		},
	}
}
