package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/app/background"
	"github.com/LavaJover/shvark-checkout-service/internal/app/setup"
	"github.com/LavaJover/shvark-checkout-service/internal/delivery/grpcapi"
	"github.com/LavaJover/shvark-checkout-service/internal/delivery/http/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, gRPC health service and background sweeps",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setup.InitializeDependencies(ctx, cfg, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			slog.Error("failed to close dependencies", "error", err.Error())
		}
	}()
	ucs := setup.InitializeUseCases(deps)

	// HTTP
	dispatcher := handlers.NewDispatcher(
		cfg.HTTPServer.WebhookWorkers,
		cfg.HTTPServer.WebhookQueueSize,
		cfg.Payment.VerifyTimeout+cfg.Payment.ConflictWait,
	)
	paymentHandler := handlers.NewPaymentHandler(ucs.PaymentUsecase, dispatcher)
	httpServer := &http.Server{
		Addr: net.JoinHostPort(cfg.HTTPServer.Host, cfg.HTTPServer.Port),
		Handler: handlers.NewRouter(paymentHandler, deps.Store, handlers.RouterConfig{
			AllowedOrigins: cfg.HTTPServer.CORSAllowedOrigins,
			WebhookSecret:  cfg.Gateway.WebhookSecret,
			Metrics:        promhttp.Handler(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTPServer.ReadTimeout,
		WriteTimeout:      cfg.HTTPServer.WriteTimeout,
	}

	// gRPC health
	grpcServer := grpc.NewServer()
	healthHandler := grpcapi.NewHealthHandler(deps.Store)
	healthHandler.Register(grpcServer)

	grpcAddr := net.JoinHostPort(cfg.GRPCServer.Host, cfg.GRPCServer.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
	}

	tasks := background.NewBackgroundTasks(ucs.PaymentUsecase, deps.Subscriber, healthHandler, background.Config{
		SweepInterval:       cfg.Sweep.Interval,
		VerifyRequestsTopic: cfg.KafkaService.VerifyRequestsTopic,
		GroupID:             cfg.KafkaService.GroupID,
	})
	tasks.StartAll(ctx)

	errCh := make(chan error, 2)
	go func() {
		slog.Info("HTTP server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		slog.Info("gRPC server started", "addr", grpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case runErr = <-errCh:
		slog.Error("server stopped", "error", runErr.Error())
	}

	// Порядок важен: сначала перестаем принимать вебхуки, потом дожидаемся верификаций
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Payment.VerifyTimeout+5*time.Second)
	defer cancel()

	healthHandler.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err.Error())
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		slog.Warn("webhook verifications still running at shutdown", "error", err.Error())
	}
	stop()
	tasks.Wait()
	grpcServer.GracefulStop()

	slog.Info("checkout service stopped")
	return runErr
}
