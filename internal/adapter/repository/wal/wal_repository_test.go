package wal

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/user/logsieve/internal/domain"
)

func setupTestWAL(t *testing.T, maxSegmentSize, maxTotalSize int64) *WALRepository {
	t.Helper()
	dir := t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := NewWALRepository(dir, maxSegmentSize, maxTotalSize, logger)
	if err != nil {
		t.Fatalf("failed to create WALRepository: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func replayAll(t *testing.T, w *WALRepository) []domain.LogRecord {
	t.Helper()
	var replayed []domain.LogRecord
	err := w.Replay(context.Background(), func(record domain.LogRecord) error {
		replayed = append(replayed, record)
		return nil
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	return replayed
}

func TestWAL_WriteAndReplay(t *testing.T) {
	w := setupTestWAL(t, 1024, 10*1024)

	records := []domain.LogRecord{
		{ID: uuid.NewString(), Message: "record 1"},
		{ID: uuid.NewString(), Message: "record 2"},
		{ID: uuid.NewString(), Message: "record 3"},
	}

	for _, record := range records {
		if err := w.Write(context.Background(), record); err != nil {
			t.Fatalf("failed to write record: %v", err)
		}
	}
	w.Close()

	// Re-open to simulate a restart.
	reopened, err := NewWALRepository(w.dir, 1024, 10*1024, w.logger)
	if err != nil {
		t.Fatalf("failed to re-open WAL: %v", err)
	}
	defer reopened.Close()

	replayed := replayAll(t, reopened)
	if len(replayed) != len(records) {
		t.Fatalf("expected %d replayed records, got %d", len(records), len(replayed))
	}
	for i, record := range records {
		if replayed[i].ID != record.ID || replayed[i].Message != record.Message {
			t.Errorf("record %d mismatch: got %+v, want %+v", i, replayed[i], record)
		}
	}
}

func TestWAL_SegmentRotation(t *testing.T) {
	// A tiny segment size forces rotation on nearly every write.
	w := setupTestWAL(t, 64, 10*1024)

	for i := 0; i < 10; i++ {
		record := domain.LogRecord{ID: uuid.NewString(), Message: "rotating record payload"}
		if err := w.Write(context.Background(), record); err != nil {
			t.Fatalf("failed to write record %d: %v", i, err)
		}
	}

	segments, err := w.getSortedSegments()
	if err != nil {
		t.Fatalf("failed to list segments: %v", err)
	}
	if len(segments) < 2 {
		t.Fatalf("expected multiple segments after rotation, got %d", len(segments))
	}

	if got := len(replayAll(t, w)); got != 10 {
		t.Fatalf("expected all 10 records across segments, got %d", got)
	}
}

func TestWAL_MaxDiskSizeEnforced(t *testing.T) {
	w := setupTestWAL(t, 1024, 128)

	var failed bool
	for i := 0; i < 50; i++ {
		record := domain.LogRecord{ID: uuid.NewString(), Message: "filler payload to exhaust the budget"}
		if err := w.Write(context.Background(), record); err != nil {
			failed = true
			break
		}
	}
	if !failed {
		t.Fatal("expected writes to fail once the disk budget is exhausted")
	}
}

func TestWAL_TruncateRemovesSegments(t *testing.T) {
	w := setupTestWAL(t, 1024, 10*1024)

	for i := 0; i < 5; i++ {
		if err := w.Write(context.Background(), domain.LogRecord{ID: uuid.NewString(), Message: "x"}); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
	}

	if err := w.Truncate(context.Background()); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}

	if got := len(replayAll(t, w)); got != 0 {
		t.Fatalf("expected empty WAL after truncate, got %d records", got)
	}
}

func TestWAL_ReplaySkipsMalformedLines(t *testing.T) {
	w := setupTestWAL(t, 1024, 10*1024)

	if err := w.Write(context.Background(), domain.LogRecord{ID: uuid.NewString(), Message: "good"}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	// Corrupt the segment with a garbage line.
	w.mu.Lock()
	if _, err := w.currentSegment.WriteString("not json\n"); err != nil {
		w.mu.Unlock()
		t.Fatalf("failed to corrupt segment: %v", err)
	}
	w.mu.Unlock()

	if err := w.Write(context.Background(), domain.LogRecord{ID: uuid.NewString(), Message: "also good"}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	replayed := replayAll(t, w)
	if len(replayed) != 2 {
		t.Fatalf("expected malformed line skipped and 2 records replayed, got %d", len(replayed))
	}
}
