// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"report-workers/internal/common/camunda"
	"report-workers/internal/common/config"
	"report-workers/internal/common/database"
	"report-workers/internal/common/logger"
	"report-workers/internal/common/observability"
	"report-workers/internal/report/pipeline"
	gs "report-workers/internal/workers/report/generate-sections"
	"report-workers/pkg/registry"
)

const defaultListenAddress = ":8080"

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	log = logger.OrNoOp(log)
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	if err := config.ValidateForWorker(cfg); err != nil {
		zapLog.Fatal("invalid worker configuration", zap.Error(err))
	}
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("Starting worker manager", map[string]interface{}{
		"app":         cfg.App.Name,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.Observability.ServiceName, observability.WithJaeger(cfg.Observability.JaegerEndpoint))
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	log.Info("Zeebe client connected successfully", nil)

	deps := pipeline.Deps{Observability: obs}

	// --- PostgreSQL, only for the postgres example source ---
	if cfg.Examples.Source == config.ExampleSourceDB {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		deps.Postgres = pg
		log.Info("PostgreSQL connected successfully", nil)
	}

	// --- Redis response cache, optional ---
	if cfg.Database.Redis.Address != "" && cfg.Generation.CacheTTL > 0 {
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 3, time.Second, log, "Redis connection")
		if err != nil {
			log.Warn("Redis unavailable, response cache disabled", map[string]interface{}{"error": err.Error()})
		} else {
			defer rc.Close()
			deps.Redis = rc.GetClient()
			log.Info("Redis connected successfully", nil)
		}
	}

	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		log.Warn("Activity registry unavailable, input schema validation disabled", map[string]interface{}{
			"path":  cfg.Registry.Path,
			"error": err.Error(),
		})
	}

	reports, err := pipeline.New(cfg, log, deps)
	if err != nil {
		zapLog.Fatal("report pipeline configuration failed", zap.Error(err))
	}

	// --- Workers ---
	var workers []*camunda.CamundaWorker
	if config.IsWorkerEnabled(cfg, gs.TaskType) {
		handler, err := gs.NewHandler(gs.ConfigFrom(cfg, reg), reports, log)
		if err != nil {
			zapLog.Fatal("failed to create generate-report-sections handler", zap.Error(err))
		}
		workers = append(workers, startWorker(zeebe, gs.TaskType, config.GetWorkerConfig(cfg, gs.TaskType), handler, log))
	} else {
		log.Info("worker disabled", map[string]interface{}{"taskType": gs.TaskType})
	}

	// --- Health, status & metrics server ---
	addr := cfg.Observability.MetricsAddress
	if addr == "" {
		addr = defaultListenAddress
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           newMux(reports, zeebe.HealthCheck, time.Now),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"address": addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received, stopping workers...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Worker manager stopped gracefully", nil)
}

func startWorker(client *camunda.Client, taskType string, wcfg config.WorkerConfig, handler camunda.JobHandler, log logger.Logger) *camunda.CamundaWorker {
	w := camunda.NewWorker(client.GetClient(), taskType, wcfg.MaxJobsActive, config.GetDuration(wcfg.Timeout), handler, log)
	w.Start()
	log.Info("worker registered", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return w
}
