package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/user/logsieve/internal/adapter/pii"
	"github.com/user/logsieve/internal/domain"
)

// IngestRecordUseCase handles the business logic for ingesting one record.
type IngestRecordUseCase struct {
	buffer   domain.RecordBuffer
	redactor *pii.Redactor
	logger   *slog.Logger
}

// NewIngestRecordUseCase creates a new IngestRecordUseCase.
func NewIngestRecordUseCase(buffer domain.RecordBuffer, redactor *pii.Redactor, logger *slog.Logger) *IngestRecordUseCase {
	return &IngestRecordUseCase{
		buffer:   buffer,
		redactor: redactor,
		logger:   logger,
	}
}

// Ingest enriches, redacts, and buffers a log record.
func (uc *IngestRecordUseCase) Ingest(ctx context.Context, record *domain.LogRecord) error {
	record.ReceivedAt = time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		// Producers without clocks still need an event time for the
		// duplicate-run bookkeeping downstream.
		record.Timestamp = record.ReceivedAt
	}
	if record.Level == "" {
		record.Level = domain.LevelInfo
	}

	if err := uc.redactor.Redact(record); err != nil {
		// Non-fatal; the record is ingested with its original metadata.
		uc.logger.Warn("failed to redact PII, proceeding with original record", "error", err, "record_id", record.ID)
	}

	if err := uc.buffer.BufferRecord(ctx, *record); err != nil {
		uc.logger.Error("failed to buffer log record", "error", err, "record_id", record.ID)
		return err
	}

	return nil
}
