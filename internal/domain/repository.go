package domain

import (
	"context"
	"time"
)

// RecordBuffer is the durable buffer between the ingest and consumer
// services (Redis Streams in production).
type RecordBuffer interface {
	// BufferRecord appends a single record to the buffer.
	BufferRecord(ctx context.Context, record LogRecord) error

	// ReadRecordBatch reads up to count records for a consumer group member.
	ReadRecordBatch(ctx context.Context, group, consumer string, count int) ([]LogRecord, error)

	// AcknowledgeRecords marks buffered records as processed.
	AcknowledgeRecords(ctx context.Context, group string, messageIDs ...string) error

	// MoveToDLQ parks records that could not be sinked.
	MoveToDLQ(ctx context.Context, records []LogRecord) error
}

// RecordSink is the final structured destination for forwarded records.
type RecordSink interface {
	WriteRecordBatch(ctx context.Context, records []LogRecord) error
}

// APIKeyRepository validates producer API keys.
type APIKeyRepository interface {
	// IsValid reports whether the key exists and is active. Implementations
	// should cache to keep the database off the hot path.
	IsValid(ctx context.Context, key string) (bool, error)
}

// WALRepository is the file-based failover used when the buffer is down.
type WALRepository interface {
	// Write appends a record to the local WAL.
	Write(ctx context.Context, record LogRecord) error

	// Replay feeds stored records to the handler, oldest first. The handler
	// re-buffers each record.
	Replay(ctx context.Context, handler func(record LogRecord) error) error

	// Truncate removes segments that have been replayed.
	Truncate(ctx context.Context) error
}

// StreamAdminRepository exposes administrative operations on the buffer
// stream. These run out of band with record processing; no ordering is
// guaranteed relative to in-flight records.
type StreamAdminRepository interface {
	GetGroupInfo(ctx context.Context, stream string) ([]ConsumerGroupInfo, error)
	GetConsumerInfo(ctx context.Context, stream, group string) ([]ConsumerInfo, error)
	GetPendingSummary(ctx context.Context, stream, group string) (*PendingSummary, error)
	GetPendingMessages(ctx context.Context, stream, group, consumer, startID string, count int64) ([]PendingMessage, error)
	ClaimMessages(ctx context.Context, stream, group, consumer string, minIdle time.Duration, messageIDs []string) ([]LogRecord, error)
	AcknowledgeMessages(ctx context.Context, stream, group string, messageIDs ...string) (int64, error)
	TrimStream(ctx context.Context, stream string, maxLen int64) (int64, error)
}
