package mocks

import (
	"context"
	"sync"

	"github.com/user/logsieve/internal/domain"
)

// MockRecordRepository is a mock implementation of domain.RecordBuffer and
// domain.RecordSink for testing.
type MockRecordRepository struct {
	mu              sync.Mutex
	BufferedRecords []domain.LogRecord
	WrittenRecords  []domain.LogRecord
	AckedMessageIDs []string
	DLQRecords      []domain.LogRecord
	ReadBatchResult []domain.LogRecord
	BufferErr       error
	ReadErr         error
	WriteErr        error
	AckErr          error
	DLQErr          error
}

func (m *MockRecordRepository) BufferRecord(ctx context.Context, record domain.LogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BufferErr != nil {
		return m.BufferErr
	}
	m.BufferedRecords = append(m.BufferedRecords, record)
	return nil
}

func (m *MockRecordRepository) ReadRecordBatch(ctx context.Context, group, consumer string, count int) ([]domain.LogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return m.ReadBatchResult, nil
}

func (m *MockRecordRepository) WriteRecordBatch(ctx context.Context, records []domain.LogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.WrittenRecords = append(m.WrittenRecords, records...)
	return nil
}

func (m *MockRecordRepository) AcknowledgeRecords(ctx context.Context, group string, messageIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.AckedMessageIDs = append(m.AckedMessageIDs, messageIDs...)
	return nil
}

func (m *MockRecordRepository) MoveToDLQ(ctx context.Context, records []domain.LogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DLQErr != nil {
		return m.DLQErr
	}
	m.DLQRecords = append(m.DLQRecords, records...)
	return nil
}

// MockDispatcher is a mock implementation of domain.Dispatcher that records
// every forwarded record in order.
type MockDispatcher struct {
	mu        sync.Mutex
	Forwarded []domain.LogRecord
	ForwardFn func(ctx context.Context, record domain.LogRecord) error
}

func (m *MockDispatcher) Forward(ctx context.Context, record domain.LogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForwardFn != nil {
		if err := m.ForwardFn(ctx, record); err != nil {
			return err
		}
	}
	m.Forwarded = append(m.Forwarded, record)
	return nil
}

// Messages returns the payload texts of all forwarded records, in order.
func (m *MockDispatcher) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Forwarded))
	for i, rec := range m.Forwarded {
		out[i] = rec.Message
	}
	return out
}
