package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/user/logsieve/internal/adapter/api"
	"github.com/user/logsieve/internal/adapter/metrics"
	"github.com/user/logsieve/internal/adapter/pii"
	"github.com/user/logsieve/internal/adapter/repository/postgres"
	redisrepo "github.com/user/logsieve/internal/adapter/repository/redis"
	"github.com/user/logsieve/internal/adapter/repository/wal"
	"github.com/user/logsieve/internal/pkg/config"
	"github.com/user/logsieve/internal/pkg/logger"
	"github.com/user/logsieve/internal/usecase"

	_ "github.com/lib/pq"
)

const (
	consumerGroup       = "record-processors"
	healthCheckInterval = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	m := metrics.NewIngestMetrics()

	// Metrics server.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    cfg.MetricsServerAddr,
		Handler: metricsMux,
	}
	go func() {
		log.Info("starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis connection.
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable on startup, WAL will buffer records", "error", err)
	} else {
		log.Info("connected to redis")
	}

	// PostgreSQL connection (API keys).
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	// WAL for redis failover.
	walRepo, err := wal.NewWALRepository(cfg.WALDir, cfg.WALSegmentSize, cfg.WALMaxDiskSize, log)
	if err != nil {
		log.Error("failed to create WAL repository", "error", err)
		os.Exit(1)
	}
	defer walRepo.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "ingest-default"
	}

	bufferRepo, err := redisrepo.NewRecordRepository(redisClient, log, consumerGroup, hostname, cfg.DLQStreamKey, walRepo)
	if err != nil {
		log.Error("failed to create redis record repository", "error", err)
		os.Exit(1)
	}
	go bufferRepo.StartHealthCheck(ctx, healthCheckInterval)

	apiKeyRepo := postgres.NewAPIKeyRepository(db, log, cfg.APIKeyCacheTTL, m)
	redactor := pii.NewRedactor(strings.Split(cfg.PIIRedactionFields, ","), log)
	ingestUseCase := usecase.NewIngestRecordUseCase(bufferRepo, redactor, log)

	router := api.NewRouter(cfg, log, apiKeyRepo, ingestUseCase, m)
	server := &http.Server{
		Addr:    cfg.IngestServerAddr,
		Handler: router,
	}

	go func() {
		log.Info("starting ingest server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ingest server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, stopping ingest server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down ingest server gracefully", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down metrics server gracefully", "error", err)
	}

	log.Info("ingest server shut down gracefully")
}
