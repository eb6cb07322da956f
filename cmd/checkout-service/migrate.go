package main

import (
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations to the checkout database",
		Long: `Apply pending migrations from the migrations directory to checkout_db.

The Postgres store needs the transactions table; the verification attempt log
lives there too. Redis and Mongo stores need no migrations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.CheckoutDB.MigrationsPath
			}

			db := postgres.MustInitDB(cfg)
			sqlDB, err := db.DB()
			if err == nil {
				defer sqlDB.Close()
			}
			return migrate.RunMigrations(db, path)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "migrations directory (default checkout_db.migrations_path)")
	return cmd
}
