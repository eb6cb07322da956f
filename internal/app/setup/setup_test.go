package setup

import (
	"context"
	"testing"

	"github.com/LavaJover/shvark-checkout-service/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.CheckoutConfig {
	cfg := &config.CheckoutConfig{}
	cfg.Store.Driver = DriverMemory
	cfg.Gateway.BaseURL = "https://gateway.example"
	cfg.Payment.ReferencePrefix = "tkt"
	return cfg
}

func TestInitializeDependencies_Memory(t *testing.T) {
	deps, err := InitializeDependencies(context.Background(), memoryConfig(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer deps.Close()

	assert.NotNil(t, deps.Store)
	assert.NotNil(t, deps.Gateway)
	assert.NotNil(t, deps.Hook)
	assert.NotNil(t, deps.Attempts)
	assert.Nil(t, deps.DB)
	assert.Nil(t, deps.Subscriber)
	assert.NoError(t, deps.Store.Ping(context.Background()))

	ucs := InitializeUseCases(deps)
	assert.NotNil(t, ucs.PaymentUsecase)
}

func TestInitializeDependencies_UnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Driver = "cassandra"

	_, err := InitializeDependencies(context.Background(), cfg, prometheus.NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
}
