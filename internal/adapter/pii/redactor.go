package pii

import (
	"encoding/json"
	"log/slog"

	"github.com/user/logsieve/internal/domain"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor removes sensitive fields from record metadata before the record
// enters the buffer. The payload text is left untouched, so redaction never
// affects duplicate detection downstream.
type Redactor struct {
	fieldsToRedact map[string]struct{}
	logger         *slog.Logger
}

// NewRedactor creates a Redactor for the given metadata field names.
func NewRedactor(fields []string, logger *slog.Logger) *Redactor {
	fieldSet := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		fieldSet[field] = struct{}{}
	}
	return &Redactor{
		fieldsToRedact: fieldSet,
		logger:         logger.With("component", "pii_redactor"),
	}
}

// Redact modifies the record in place, replacing configured metadata fields
// with a placeholder. Returns an error when the metadata cannot be processed.
func (r *Redactor) Redact(record *domain.LogRecord) error {
	if len(r.fieldsToRedact) == 0 || len(record.Metadata) == 0 {
		return nil
	}

	var metadata map[string]interface{}
	if err := json.Unmarshal(record.Metadata, &metadata); err != nil {
		r.logger.Warn("failed to unmarshal metadata for PII redaction", "error", err, "record_id", record.ID)
		return err
	}

	redacted := false
	for field := range r.fieldsToRedact {
		if _, ok := metadata[field]; ok {
			metadata[field] = RedactedPlaceholder
			redacted = true
		}
	}

	if redacted {
		record.PIIRedacted = true
		modified, err := json.Marshal(metadata)
		if err != nil {
			r.logger.Error("failed to marshal metadata after PII redaction", "error", err, "record_id", record.ID)
			return err
		}
		record.Metadata = modified
	}

	return nil
}
