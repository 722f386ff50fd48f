package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/user/logsieve/internal/adapter/metrics"
	"github.com/user/logsieve/internal/domain"
)

// RecordIngestor accepts a single enriched record into the pipeline.
type RecordIngestor interface {
	Ingest(ctx context.Context, record *domain.LogRecord) error
}

// IngestHandler handles HTTP requests for record ingestion.
type IngestHandler struct {
	useCase      RecordIngestor
	logger       *slog.Logger
	maxEventSize int64
	metrics      *metrics.IngestMetrics
}

// NewIngestHandler creates a new IngestHandler. metrics may be nil.
func NewIngestHandler(uc RecordIngestor, logger *slog.Logger, maxEventSize int64, m *metrics.IngestMetrics) *IngestHandler {
	return &IngestHandler{
		useCase:      uc,
		logger:       logger,
		maxEventSize: maxEventSize,
		metrics:      m,
	}
}

// ServeHTTP processes incoming record ingestion requests.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxEventSize)

	var err error
	contentType := r.Header.Get("Content-Type")
	switch contentType {
	case "application/json":
		err = h.handleSingleJSON(r)
	case "application/x-ndjson":
		err = h.handleNDJSON(r)
	default:
		h.countRecord("error_media_type")
		http.Error(w, "Unsupported Media Type: "+contentType, http.StatusUnsupportedMediaType)
		return
	}

	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			h.countRecord("error_size")
			http.Error(w, "http: request body too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, errBadPayload):
			h.countRecord("error_parse")
			http.Error(w, "Bad Request", http.StatusBadRequest)
		default:
			h.logger.Error("failed to process ingest request", "error", err)
			h.countRecord("error_buffer")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

var errBadPayload = errors.New("bad payload")

func (h *IngestHandler) handleSingleJSON(r *http.Request) error {
	var record domain.LogRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return errBadPayload
	}

	if err := h.useCase.Ingest(r.Context(), &record); err != nil {
		return err
	}
	h.countRecord("accepted")
	h.countBytes(r)
	return nil
}

func (h *IngestHandler) handleNDJSON(r *http.Request) error {
	scanner := bufio.NewScanner(r.Body)
	accepted := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record domain.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return errBadPayload
		}

		if err := h.useCase.Ingest(r.Context(), &record); err != nil {
			return err
		}
		accepted++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if h.metrics != nil {
		h.metrics.RecordsTotal.WithLabelValues("accepted").Add(float64(accepted))
	}
	h.countBytes(r)
	return nil
}

func (h *IngestHandler) countRecord(status string) {
	if h.metrics != nil {
		h.metrics.RecordsTotal.WithLabelValues(status).Inc()
	}
}

func (h *IngestHandler) countBytes(r *http.Request) {
	if h.metrics != nil && r.ContentLength > 0 {
		h.metrics.BytesTotal.Add(float64(r.ContentLength))
	}
}
