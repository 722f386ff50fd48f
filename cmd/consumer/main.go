package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/user/logsieve/internal/adapter/api"
	"github.com/user/logsieve/internal/adapter/metrics"
	"github.com/user/logsieve/internal/adapter/repository/postgres"
	redisrepo "github.com/user/logsieve/internal/adapter/repository/redis"
	"github.com/user/logsieve/internal/adapter/sink"
	"github.com/user/logsieve/internal/dedup"
	"github.com/user/logsieve/internal/domain"
	"github.com/user/logsieve/internal/pkg/config"
	"github.com/user/logsieve/internal/pkg/logger"
	"github.com/user/logsieve/internal/usecase"

	_ "github.com/lib/pq"
)

const (
	consumerGroup      = "record-processors"
	processingInterval = 1 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("starting consumer worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis connection.
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis")

	// PostgreSQL connection.
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

	consumerName, err := os.Hostname()
	if err != nil {
		log.Warn("could not get hostname for consumer name, using default", "error", err)
		consumerName = "consumer-default"
	}

	bufferRepo, err := redisrepo.NewRecordRepository(redisClient, log, consumerGroup, consumerName, cfg.DLQStreamKey, nil)
	if err != nil {
		log.Error("failed to create redis record repository", "error", err)
		os.Exit(1)
	}
	sinkRepo := postgres.NewRecordRepository(db, log)

	// Fan-out destinations for forwarded records: the batch collector feeds
	// the postgres sink, the console mirrors records to stdout, the tail
	// broker streams them to SSE clients.
	collector := usecase.NewBatchCollector()
	tailBroker := sink.NewTailBroker(log)
	fanout := sink.NewFanout(collector, sink.NewConsole(os.Stdout), tailBroker)

	filterMetrics := metrics.NewFilterMetrics()
	filter := dedup.NewFilter(cfg.MaxPeriod, domain.ParseLevel(cfg.NotificationLevel), fanout, log, filterMetrics, nil)

	processUseCase := usecase.NewProcessRecordsUseCase(
		bufferRepo, sinkRepo, filter, collector, log,
		consumerGroup, consumerName,
		cfg.BatchSize, cfg.RetryCount, cfg.RetryBackoff,
	)

	// Admin, metrics, and live tail server.
	adminUseCase := usecase.NewAdminStreamUseCase(redisrepo.NewAdminRepository(redisClient, log))
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.Handle("GET /tail", tailBroker)
	adminMux.Handle("/", api.NewAdminRouter(adminUseCase, log))

	adminServer := &http.Server{
		Addr:    cfg.AdminServerAddr,
		Handler: adminMux,
	}
	go func() {
		log.Info("starting admin server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("admin server failed", "error", err)
		}
	}()

	ticker := time.NewTicker(processingInterval)
	defer ticker.Stop()

	log.Info("consumer worker started, processing records...",
		"group", consumerGroup,
		"consumer", consumerName,
		"max_period", cfg.MaxPeriod,
	)

Loop:
	for {
		select {
		case <-ticker.C:
			if _, err := processUseCase.ProcessBatch(ctx); err != nil {
				log.Error("error processing batch", "error", err)
			}
		case <-ctx.Done():
			log.Info("context cancelled, shutting down consumer loop")
			break Loop
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down admin server gracefully", "error", err)
	}

	log.Info("consumer worker shut down gracefully")
}
