package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/logsieve/internal/domain"
)

const recordStreamKey = "log_records"

// RecordRepository implements domain.RecordBuffer using Redis Streams, with
// an optional file-based WAL fallback for when Redis is unavailable.
type RecordRepository struct {
	client       *redis.Client
	logger       *slog.Logger
	wal          domain.WALRepository
	dlqStreamKey string
	isAvailable  atomic.Bool
}

// NewRecordRepository creates a Redis-backed RecordRepository. The WAL is
// optional; pass nil when failover is not needed (e.g. for consumers).
func NewRecordRepository(client *redis.Client, logger *slog.Logger, group, consumer, dlqStreamKey string, wal domain.WALRepository) (*RecordRepository, error) {
	repo := &RecordRepository{
		client:       client,
		logger:       logger.With("component", "redis_repository"),
		wal:          wal,
		dlqStreamKey: dlqStreamKey,
	}
	repo.isAvailable.Store(true)

	if err := repo.setupConsumerGroup(context.Background(), group); err != nil {
		repo.isAvailable.Store(false)
		repo.logger.Error("failed to setup consumer group, redis may be unavailable on startup", "error", err)
	}

	return repo, nil
}

// StartHealthCheck monitors Redis connectivity in a loop and replays the WAL
// once the connection recovers. Blocks until ctx is cancelled.
func (r *RecordRepository) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if r.wal == nil {
		r.logger.Info("WAL is not configured, skipping health check/replayer")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("starting redis health check and WAL replayer")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping redis health check")
			return
		case <-ticker.C:
			if err := r.client.Ping(ctx).Err(); err != nil {
				if r.isAvailable.CompareAndSwap(true, false) {
					r.logger.Error("redis connection lost", "error", err)
				}
				continue
			}
			if r.isAvailable.CompareAndSwap(false, true) {
				r.logger.Info("redis connection recovered")
				if err := r.ReplayWAL(ctx); err != nil {
					r.logger.Error("failed to replay WAL after redis recovery", "error", err)
					r.isAvailable.Store(false)
				}
			}
		}
	}
}

// ReplayWAL re-buffers WAL records into Redis and truncates the WAL on
// success.
func (r *RecordRepository) ReplayWAL(ctx context.Context) error {
	r.logger.Info("attempting to replay WAL to redis")

	if err := r.wal.Replay(ctx, func(record domain.LogRecord) error {
		return r.bufferToRedis(ctx, record)
	}); err != nil {
		return fmt.Errorf("WAL replay failed: %w", err)
	}

	if err := r.wal.Truncate(ctx); err != nil {
		return fmt.Errorf("failed to truncate WAL after successful replay: %w", err)
	}

	r.logger.Info("WAL replay to redis completed")
	return nil
}

func (r *RecordRepository) setupConsumerGroup(ctx context.Context, group string) error {
	err := r.client.XGroupCreateMkStream(ctx, recordStreamKey, group, "0").Err()
	if err != nil && !isRedisBusyGroupError(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// BufferRecord adds a record to the Redis Stream, falling back to the WAL
// when Redis is unavailable.
func (r *RecordRepository) BufferRecord(ctx context.Context, record domain.LogRecord) error {
	if !r.isAvailable.Load() {
		if r.wal == nil {
			return errors.New("redis is unavailable and WAL is not configured")
		}
		r.logger.Warn("redis is unavailable, writing to WAL", "record_id", record.ID)
		return r.wal.Write(ctx, record)
	}

	err := r.bufferToRedis(ctx, record)
	if err != nil {
		if isNetworkError(err) {
			if r.isAvailable.CompareAndSwap(true, false) {
				r.logger.Error("redis connection lost during write", "error", err)
			}
			if r.wal == nil {
				return fmt.Errorf("redis became unavailable and WAL is not configured: %w", err)
			}
			r.logger.Warn("redis became unavailable, writing to WAL", "record_id", record.ID)
			return r.wal.Write(ctx, record)
		}
		return err
	}
	return nil
}

func (r *RecordRepository) bufferToRedis(ctx context.Context, record domain.LogRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal log record: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: recordStreamKey,
		Values: map[string]interface{}{"payload": payload},
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to XADD to redis stream: %w", err)
	}
	return nil
}

// ReadRecordBatch reads a batch of records from the stream for a consumer
// group member.
func (r *RecordRepository) ReadRecordBatch(ctx context.Context, group, consumer string, count int) ([]domain.LogRecord, error) {
	args := &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{recordStreamKey, ">"},
		Count:    int64(count),
		Block:    2 * time.Second,
	}

	streams, err := r.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XREADGROUP from redis: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	messages := streams[0].Messages
	records := make([]domain.LogRecord, 0, len(messages))
	for _, msg := range messages {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			r.logger.Warn("invalid message format in stream, skipping", "message_id", msg.ID)
			continue
		}

		var record domain.LogRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			r.logger.Warn("failed to unmarshal log record from stream, skipping", "message_id", msg.ID, "error", err)
			continue
		}
		record.StreamMessageID = msg.ID
		records = append(records, record)
	}

	return records, nil
}

// AcknowledgeRecords acknowledges processed messages in the stream.
func (r *RecordRepository) AcknowledgeRecords(ctx context.Context, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := r.client.XAck(ctx, recordStreamKey, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("failed to XACK messages in redis: %w", err)
	}
	return nil
}

// MoveToDLQ parks a batch of records on the dead-letter stream.
func (r *RecordRepository) MoveToDLQ(ctx context.Context, records []domain.LogRecord) error {
	if len(records) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			r.logger.Error("failed to marshal record for DLQ", "record_id", record.ID, "error", err)
			continue
		}
		args := &redis.XAddArgs{
			Stream: r.dlqStreamKey,
			Values: map[string]interface{}{
				"payload":         payload,
				"original_stream": recordStreamKey,
				"original_msg_id": record.StreamMessageID,
				"failed_at":       time.Now().UTC().Format(time.RFC3339),
			},
		}
		pipe.XAdd(ctx, args)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute DLQ pipeline: %w", err)
	}
	r.logger.Warn("moved records to DLQ", "count", len(records))
	return nil
}

func isRedisBusyGroupError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
