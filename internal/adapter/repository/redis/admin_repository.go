package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/logsieve/internal/domain"
)

// AdminRepository implements domain.StreamAdminRepository for Redis Streams.
type AdminRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewAdminRepository creates a Redis admin repository.
func NewAdminRepository(client *redis.Client, logger *slog.Logger) *AdminRepository {
	return &AdminRepository{
		client: client,
		logger: logger.With("component", "redis_admin_repository"),
	}
}

// GetGroupInfo retrieves all consumer groups of a stream.
func (r *AdminRepository) GetGroupInfo(ctx context.Context, stream string) ([]domain.ConsumerGroupInfo, error) {
	groups, err := r.client.XInfoGroups(ctx, stream).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get group info for stream %s: %w", stream, err)
	}

	result := make([]domain.ConsumerGroupInfo, len(groups))
	for i, g := range groups {
		result[i] = domain.ConsumerGroupInfo{
			Name:            g.Name,
			Consumers:       g.Consumers,
			Pending:         g.Pending,
			LastDeliveredID: g.LastDeliveredID,
		}
	}
	return result, nil
}

// GetConsumerInfo retrieves the consumers of a specific group.
func (r *AdminRepository) GetConsumerInfo(ctx context.Context, stream, group string) ([]domain.ConsumerInfo, error) {
	consumers, err := r.client.XInfoConsumers(ctx, stream, group).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get consumer info for stream %s, group %s: %w", stream, group, err)
	}

	result := make([]domain.ConsumerInfo, len(consumers))
	for i, c := range consumers {
		result[i] = domain.ConsumerInfo{
			Name:    c.Name,
			Pending: c.Pending,
			Idle:    time.Duration(c.Idle) * time.Millisecond,
		}
	}
	return result, nil
}

// GetPendingSummary retrieves a summary of a group's unacknowledged records.
func (r *AdminRepository) GetPendingSummary(ctx context.Context, stream, group string) (*domain.PendingSummary, error) {
	pending, err := r.client.XPending(ctx, stream, group).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending summary for stream %s, group %s: %w", stream, group, err)
	}

	return &domain.PendingSummary{
		Total:          pending.Count,
		FirstMessageID: pending.Lower,
		LastMessageID:  pending.Higher,
		ConsumerTotals: pending.Consumers,
	}, nil
}

// GetPendingMessages retrieves detail rows for unacknowledged records.
func (r *AdminRepository) GetPendingMessages(ctx context.Context, stream, group, consumer, startID string, count int64) ([]domain.PendingMessage, error) {
	args := &redis.XPendingExtArgs{
		Stream:   stream,
		Group:    group,
		Start:    startID,
		End:      "+",
		Count:    count,
		Consumer: consumer,
	}

	messages, err := r.client.XPendingExt(ctx, args).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending messages: %w", err)
	}

	result := make([]domain.PendingMessage, len(messages))
	for i, m := range messages {
		result[i] = domain.PendingMessage{
			ID:         m.ID,
			Consumer:   m.Consumer,
			IdleTime:   m.Idle,
			RetryCount: m.RetryCount,
		}
	}
	return result, nil
}

// ClaimMessages reassigns pending records to another consumer.
func (r *AdminRepository) ClaimMessages(ctx context.Context, stream, group, consumer string, minIdle time.Duration, messageIDs []string) ([]domain.LogRecord, error) {
	args := &redis.XClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: messageIDs,
	}

	claimed, err := r.client.XClaim(ctx, args).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim messages: %w", err)
	}

	records := make([]domain.LogRecord, 0, len(claimed))
	for _, msg := range claimed {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			continue
		}
		var record domain.LogRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			r.logger.Warn("failed to unmarshal claimed message", "message_id", msg.ID, "error", err)
			continue
		}
		record.StreamMessageID = msg.ID
		records = append(records, record)
	}
	return records, nil
}

// AcknowledgeMessages acknowledges records on an arbitrary stream and group.
func (r *AdminRepository) AcknowledgeMessages(ctx context.Context, stream, group string, messageIDs ...string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, errors.New("at least one message ID is required")
	}
	return r.client.XAck(ctx, stream, group, messageIDs...).Result()
}

// TrimStream trims a stream to a maximum length.
func (r *AdminRepository) TrimStream(ctx context.Context, stream string, maxLen int64) (int64, error) {
	return r.client.XTrimMaxLen(ctx, stream, maxLen).Result()
}
