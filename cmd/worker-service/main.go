package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kebal2/etranslation-mock/internal/bootstrap"
	"github.com/kebal2/etranslation-mock/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run drains the shared RabbitMQ dispatch queue filled by API services
// configured with worker.embedded=false
func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateStandaloneWorker(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.Int("concurrency", cfg.Worker.Concurrency),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.InitInfrastructure(ctx, cfg, appLogger.Logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	callbackWorker, err := bootstrap.NewWorker(&cfg.Worker, infra, appLogger.Component("callback-worker"))
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	// The worker outlives ctx so Stop can drain within the grace period.
	if err := callbackWorker.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	appLogger.Info("Worker draining dispatch queue", slog.String("queue", cfg.RabbitMQ.Queue.Name))

	<-ctx.Done()
	stop()
	appLogger.Info("Shutdown requested", slog.Duration("grace", cfg.Worker.ShutdownTimeout))

	graceCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer cancel()

	if err := callbackWorker.Stop(graceCtx); err != nil {
		appLogger.Warn("Worker did not finish in-flight callbacks", slog.Any("error", err))
	}

	stats := callbackWorker.Stats()
	appLogger.Info("Worker service stopped",
		slog.Uint64("delivered", stats.Delivered),
		slog.Uint64("failed", stats.Failed),
	)
	return nil
}
