package domain

import (
	"encoding/json"
	"time"
)

// Level is the severity of a log record.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ParseLevel maps a level name to a Level, defaulting to info for
// unknown names so that misconfigured producers still flow through.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return Level(s)
	default:
		return LevelInfo
	}
}

// LogRecord is the canonical shape of a log record moving through the
// pipeline. Records are treated as immutable once enriched at ingest; the
// dedup filter only reads them and may hold a copy for one window lifetime.
type LogRecord struct {
	ID              string          `json:"record_id"`
	ReceivedAt      time.Time       `json:"received_at"`
	Timestamp       time.Time       `json:"timestamp"`
	Source          string          `json:"source,omitempty"`
	Logger          string          `json:"logger,omitempty"`
	Level           Level           `json:"level,omitempty"`
	Message         string          `json:"message"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	PIIRedacted     bool            `json:"pii_redacted,omitempty"`
	StreamMessageID string          `json:"-"` // Buffer bookkeeping, never written to sinks.
}
