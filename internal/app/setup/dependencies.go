package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/config"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/fulfillment"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/gateway/chapa"
	publisher "github.com/LavaJover/shvark-checkout-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/memory"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/mongostore"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/notifier"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/postgres/repository"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/redisstore"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Dependencies struct {
	Config     *config.CheckoutConfig
	DB         *gorm.DB
	Store      domain.TransactionRepository
	Gateway    domain.GatewayClient
	Metrics    *metrics.PaymentMetrics
	Attempts   domain.AttemptLogger
	Hook       domain.FulfillmentHook
	Subscriber domain.SubscriberPort

	closers []func() error
}

func InitializeDependencies(ctx context.Context, cfg *config.CheckoutConfig, reg prometheus.Registerer) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Metrics: metrics.NewPaymentMetrics(reg),
	}

	if err := deps.initStore(ctx); err != nil {
		deps.Close()
		return nil, fmt.Errorf("store: %w", err)
	}

	deps.Gateway = chapa.NewClient(chapa.Config{
		BaseURL:        cfg.Gateway.BaseURL,
		SecretKey:      cfg.Gateway.SecretKey,
		RequestTimeout: cfg.Gateway.RequestTimeout,
		MaxAttempts:    cfg.Gateway.MaxAttempts,
		BackoffBase:    cfg.Gateway.BackoffBase,
		BackoffFactor:  cfg.Gateway.BackoffFactor,
	}, deps.Metrics)

	if err := deps.initFulfillment(); err != nil {
		deps.Close()
		return nil, fmt.Errorf("fulfillment: %w", err)
	}

	return deps, nil
}

func (d *Dependencies) initStore(ctx context.Context) error {
	cfg := d.Config

	switch cfg.Store.Driver {
	case DriverPostgres:
		db, err := postgres.InitDB(cfg.CheckoutDB.Dsn)
		if err != nil {
			return err
		}
		d.DB = db
		d.closers = append(d.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		if cfg.CheckoutDB.AutoMigrate {
			if err := migrate.RunMigrations(db, cfg.CheckoutDB.MigrationsPath); err != nil {
				return err
			}
		}
		d.Store = repository.NewDefaultTransactionRepository(db)
		d.Attempts = logger.NewPGAttemptLogger(db)

	case DriverRedis:
		client, err := redisstore.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, client.Close)
		d.Store = redisstore.NewTransactionRepository(client)
		d.Attempts = logger.NewSlogAttemptLogger(slog.Default())

	case DriverMongo:
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, func() error {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Disconnect(disconnectCtx)
		})
		repo := mongostore.NewTransactionRepository(client.Database(cfg.Mongo.Database).Collection(mongostore.CollectionName))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}
		d.Store = repo
		d.Attempts = logger.NewSlogAttemptLogger(slog.Default())

	case DriverMemory:
		slog.Warn("memory store selected: transactions are lost on restart and not shared between instances")
		d.Store = memory.NewTransactionRepository()
		d.Attempts = logger.NewSlogAttemptLogger(slog.Default())

	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	slog.Info("transaction store ready", "driver", cfg.Store.Driver)
	return nil
}

func (d *Dependencies) initFulfillment() error {
	cfg := d.Config

	var events fulfillment.EventPublisher
	if cfg.KafkaService.Enabled {
		brokers := cfg.KafkaBrokers()
		pub := publisher.NewDefaultKafkaPublisher(brokers)
		d.closers = append(d.closers, pub.Close)
		events = publisher.NewPaymentEventPublisher(pub, cfg.KafkaService.PaymentEventsTopic)
		d.Subscriber = publisher.NewDefaultKafkaSubscriber(brokers)
	}

	var callbacks fulfillment.CallbackSender
	if cfg.Fulfillment.CallbackURL != "" {
		callbacks = notifier.NewCallbackNotifier(cfg.Fulfillment.CallbackSecret, 10*time.Second)
	}

	hook, err := fulfillment.NewHook(events, callbacks, cfg.Fulfillment.CallbackURL)
	if err != nil {
		return err
	}
	d.Hook = hook
	return nil
}

// Close releases connections in reverse order of creation.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
