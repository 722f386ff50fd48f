package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/user/logsieve/internal/adapter/pii"
	"github.com/user/logsieve/internal/domain"
	"github.com/user/logsieve/internal/domain/mocks"
)

func TestIngestRecordUseCase_Ingest(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	redactor := pii.NewRedactor([]string{"email"}, logger)

	t.Run("Successful Ingestion", func(t *testing.T) {
		mockRepo := &mocks.MockRecordRepository{}
		uc := NewIngestRecordUseCase(mockRepo, redactor, logger)

		record := &domain.LogRecord{Message: "test message"}
		err := uc.Ingest(context.Background(), record)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if record.ID == "" {
			t.Error("expected record ID to be generated")
		}
		if record.ReceivedAt.IsZero() {
			t.Error("expected ReceivedAt to be set")
		}
		if record.Timestamp.IsZero() {
			t.Error("expected Timestamp to default to ReceivedAt")
		}
		if record.Level != domain.LevelInfo {
			t.Errorf("expected level to default to info, got %q", record.Level)
		}
		if len(mockRepo.BufferedRecords) != 1 {
			t.Errorf("expected 1 record to be buffered, got %d", len(mockRepo.BufferedRecords))
		}
		if mockRepo.BufferedRecords[0].ID != record.ID {
			t.Error("buffered record ID mismatch")
		}
	})

	t.Run("Caller Timestamp Preserved", func(t *testing.T) {
		mockRepo := &mocks.MockRecordRepository{}
		uc := NewIngestRecordUseCase(mockRepo, redactor, logger)

		record := &domain.LogRecord{Message: "m", Level: domain.LevelError}
		record.Timestamp = record.Timestamp.AddDate(2024, 0, 0)

		if err := uc.Ingest(context.Background(), record); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if record.Timestamp.Year() != 2025 {
			t.Errorf("caller-supplied timestamp must not be overwritten, got %v", record.Timestamp)
		}
		if record.Level != domain.LevelError {
			t.Errorf("caller-supplied level must not be overwritten, got %q", record.Level)
		}
	})

	t.Run("Buffer Error", func(t *testing.T) {
		mockRepo := &mocks.MockRecordRepository{
			BufferErr: errors.New("buffer is full"),
		}
		uc := NewIngestRecordUseCase(mockRepo, redactor, logger)

		err := uc.Ingest(context.Background(), &domain.LogRecord{Message: "m"})
		if err == nil {
			t.Fatal("expected an error, got nil")
		}
	})

	t.Run("Redaction Failure Is Non-Fatal", func(t *testing.T) {
		mockRepo := &mocks.MockRecordRepository{}
		uc := NewIngestRecordUseCase(mockRepo, redactor, logger)

		record := &domain.LogRecord{
			Message:  "m",
			Metadata: []byte(`{"email": "oops"`), // malformed
		}
		if err := uc.Ingest(context.Background(), record); err != nil {
			t.Fatalf("redaction failure should not block ingestion, got %v", err)
		}
		if len(mockRepo.BufferedRecords) != 1 {
			t.Errorf("expected record buffered despite redaction failure")
		}
	})
}
