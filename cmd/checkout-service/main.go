package main

import (
	"fmt"
	"log"
	"os"

	"github.com/LavaJover/shvark-checkout-service/internal/config"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	Version    = "dev"
	configPath string
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}

	rootCmd := &cobra.Command{
		Use:          "checkout-service",
		Short:        "Ticket checkout: gateway sessions, webhook reconciliation, expiry sweep",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CHECKOUT_CONFIG_PATH)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(verifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config and installs the default logger.
func loadConfig() (*config.CheckoutConfig, error) {
	var cfg *config.CheckoutConfig
	if configPath == "" {
		cfg = config.MustLoad()
	} else {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	logger.MustInitLogger(cfg.LogConfig)
	return cfg, nil
}
