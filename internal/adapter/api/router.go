package api

import (
	"log/slog"
	"net/http"

	"github.com/user/logsieve/internal/adapter/api/handler"
	"github.com/user/logsieve/internal/adapter/api/middleware"
	"github.com/user/logsieve/internal/adapter/metrics"
	"github.com/user/logsieve/internal/domain"
	"github.com/user/logsieve/internal/pkg/config"
)

// NewRouter creates and configures the main HTTP router for the ingest
// service.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	apiKeyRepo domain.APIKeyRepository,
	ingestUseCase handler.RecordIngestor,
	m *metrics.IngestMetrics,
) http.Handler {
	mux := http.NewServeMux()

	ingestHandler := handler.NewIngestHandler(ingestUseCase, logger, cfg.MaxEventSize, m)

	authMiddleware := middleware.Auth(apiKeyRepo, logger)
	loggingMiddleware := middleware.Logging(logger)

	mux.Handle("POST /ingest", loggingMiddleware(authMiddleware(ingestHandler)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}
