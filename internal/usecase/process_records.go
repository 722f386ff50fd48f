package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/user/logsieve/internal/dedup"
	"github.com/user/logsieve/internal/domain"
)

// BatchCollector is a fan-out destination that accumulates forwarded records
// so the consumer can sink them in batches. Drain hands back everything
// collected since the last call.
type BatchCollector struct {
	mu      sync.Mutex
	records []domain.LogRecord
}

// NewBatchCollector creates an empty BatchCollector.
func NewBatchCollector() *BatchCollector {
	return &BatchCollector{}
}

// Forward buffers the record for the next Drain. Never fails.
func (c *BatchCollector) Forward(ctx context.Context, record domain.LogRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
	return nil
}

// Drain returns the collected records and resets the collector.
func (c *BatchCollector) Drain() []domain.LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.records
	c.records = nil
	return out
}

// ProcessRecordsUseCase reads record batches from the buffer, runs every
// record through the dedup filter, sinks whatever the filter forwarded, and
// acknowledges the batch.
type ProcessRecordsUseCase struct {
	buffer       domain.RecordBuffer
	sink         domain.RecordSink
	filter       *dedup.Filter
	collector    *BatchCollector
	logger       *slog.Logger
	group        string
	consumer     string
	batchSize    int
	retryCount   int
	retryBackoff time.Duration
}

// NewProcessRecordsUseCase creates a new use case for processing records.
// collector must be one of the filter's fan-out destinations.
func NewProcessRecordsUseCase(
	buffer domain.RecordBuffer,
	sink domain.RecordSink,
	filter *dedup.Filter,
	collector *BatchCollector,
	logger *slog.Logger,
	group, consumer string,
	batchSize, retryCount int,
	retryBackoff time.Duration,
) *ProcessRecordsUseCase {
	return &ProcessRecordsUseCase{
		buffer:       buffer,
		sink:         sink,
		filter:       filter,
		collector:    collector,
		logger:       logger,
		group:        group,
		consumer:     consumer,
		batchSize:    batchSize,
		retryCount:   retryCount,
		retryBackoff: retryBackoff,
	}
}

// ProcessBatch reads one batch from the buffer, filters it, writes the
// surviving records to the sink with retries, and acknowledges the batch.
// Returns the number of records read from the buffer.
func (uc *ProcessRecordsUseCase) ProcessBatch(ctx context.Context) (int, error) {
	records, err := uc.buffer.ReadRecordBatch(ctx, uc.group, uc.consumer, uc.batchSize)
	if err != nil {
		uc.logger.Error("failed to read record batch from buffer", "error", err)
		return 0, err
	}

	if len(records) == 0 {
		return 0, nil
	}

	uc.logger.Debug("read batch of records from buffer", "count", len(records))

	// One record is fully processed before the next is accepted; the filter
	// pushes forwarded records (and any duplicate-run summaries) into the
	// collector through the fan-out.
	for _, record := range records {
		if err := uc.filter.Process(ctx, record); err != nil {
			uc.logger.Error("failed to filter record", "error", err, "record_id", record.ID)
			return 0, err
		}
	}

	forwarded := uc.collector.Drain()
	if len(forwarded) > 0 {
		if err := uc.writeWithRetry(ctx, forwarded); err != nil {
			uc.logger.Error("failed to write batch to sink after retries, moving to DLQ", "error", err)
			if dlqErr := uc.buffer.MoveToDLQ(ctx, forwarded); dlqErr != nil {
				uc.logger.Error("failed to move records to DLQ", "error", dlqErr)
				return 0, dlqErr
			}
		}
	}

	messageIDs := make([]string, 0, len(records))
	for _, record := range records {
		if record.StreamMessageID != "" {
			messageIDs = append(messageIDs, record.StreamMessageID)
		}
	}
	if err := uc.buffer.AcknowledgeRecords(ctx, uc.group, messageIDs...); err != nil {
		// Records are sinked but not acked; redelivery is absorbed by the
		// sink's idempotent upsert.
		uc.logger.Error("failed to acknowledge records in buffer", "error", err)
		return 0, err
	}

	uc.logger.Info("processed record batch",
		"read", len(records),
		"forwarded", len(forwarded),
	)
	return len(records), nil
}

func (uc *ProcessRecordsUseCase) writeWithRetry(ctx context.Context, records []domain.LogRecord) error {
	var lastErr error
	for i := 0; i < uc.retryCount; i++ {
		err := uc.sink.WriteRecordBatch(ctx, records)
		if err == nil {
			return nil
		}
		lastErr = err
		uc.logger.Warn("failed to write batch to sink, retrying...", "attempt", i+1, "error", err)
		select {
		case <-time.After(uc.retryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
