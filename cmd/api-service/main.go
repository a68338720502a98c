package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kebal2/etranslation-mock/internal/api/handler"
	"github.com/kebal2/etranslation-mock/internal/api/router"
	"github.com/kebal2/etranslation-mock/internal/bootstrap"
	"github.com/kebal2/etranslation-mock/internal/config"
	"github.com/kebal2/etranslation-mock/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("queue_backend", cfg.Queue.Backend),
		slog.Bool("embedded_worker", cfg.Worker.Embedded),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	infra, err := bootstrap.InitInfrastructure(ctx, cfg, appLogger.Logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	var callbackWorker *worker.Worker
	if cfg.Worker.Embedded {
		callbackWorker, err = bootstrap.NewWorker(&cfg.Worker, infra, appLogger.Component("callback-worker"))
		if err != nil {
			return fmt.Errorf("failed to create worker: %w", err)
		}
		if err := callbackWorker.Start(ctx); err != nil {
			return fmt.Errorf("failed to start worker: %w", err)
		}
	}

	r := initRouter(cfg, &handler.Dependencies{
		Logger:      appLogger.Logger,
		Queue:       infra.Queue,
		DeliveryLog: infra.DeliveryLog,
		Worker:      callbackWorker,
		ServiceName: cfg.App.Name,
		HealthCheck: infra.HealthCheck,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("Starting HTTP server",
			slog.String("address", addr),
			slog.Duration("read_timeout", cfg.Server.ReadTimeout),
			slog.Duration("write_timeout", cfg.Server.WriteTimeout),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			appLogger.Info("Received signal, shutting down gracefully",
				slog.String("signal", sig.String()),
			)
		case <-gctx.Done():
		}

		return shutdown(cfg, srv, infra, callbackWorker, appLogger.Logger)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	appLogger.Info("API service shutdown complete")
	return nil
}

// shutdown stops accepting requests and closes the queue so nothing new is
// enqueued, then gives the worker its grace period to finish the running drain
func shutdown(cfg *config.Config, srv *http.Server, infra *bootstrap.Infrastructure, callbackWorker *worker.Worker, logger *slog.Logger) error {
	logger.Info("Shutting down server...")

	srvCtx, srvCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer srvCancel()

	var errs []error
	if err := srv.Shutdown(srvCtx); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("error", err))
		errs = append(errs, err)
	}

	if err := infra.CloseQueue(); err != nil {
		logger.Warn("Failed to close dispatch queue", slog.Any("error", err))
	}

	if callbackWorker != nil {
		workerCtx, workerCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
		defer workerCancel()

		if err := callbackWorker.Stop(workerCtx); err != nil {
			logger.Warn("Worker did not stop within grace period", slog.Any("error", err))
		}
	}

	return errors.Join(errs...)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, deps *handler.Dependencies) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}
