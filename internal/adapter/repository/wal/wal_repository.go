package wal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/logsieve/internal/domain"
)

const (
	segmentPrefix = "segment-"
	filePerm      = 0644
)

// WALRepository implements a file-based Write-Ahead Log of newline-delimited
// JSON records, split into size-bounded segments.
type WALRepository struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	mu             sync.Mutex
	currentSegment *os.File
	currentSize    int64
}

// NewWALRepository creates a WALRepository rooted at dir, creating the
// directory if needed and reopening the most recent segment.
func NewWALRepository(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger) (*WALRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory %s: %w", dir, err)
	}

	w := &WALRepository{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "wal_repository"),
	}

	if err := w.openLatestSegment(); err != nil {
		return nil, err
	}

	return w, nil
}

// Write appends a record to the current segment, rotating it when full.
func (w *WALRepository) Write(ctx context.Context, record domain.LogRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal log record for WAL: %w", err)
	}
	data = append(data, '\n')

	if w.currentSegment == nil {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	totalSize, err := w.calculateTotalSize()
	if err != nil {
		w.logger.Error("failed to calculate total WAL size", "error", err)
		return fmt.Errorf("could not verify WAL disk space: %w", err)
	}
	if totalSize+int64(len(data)) > w.maxTotalSize {
		return fmt.Errorf("WAL max total size exceeded (%d > %d)", totalSize, w.maxTotalSize)
	}

	n, err := w.currentSegment.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write to WAL segment: %w", err)
	}
	w.currentSize += int64(n)

	if w.currentSize >= w.maxSegmentSize {
		if err := w.rotate(); err != nil {
			w.logger.Error("failed to rotate WAL segment", "error", err)
		}
	}

	return nil
}

// Replay reads all segments, oldest first, and calls the handler for each
// stored record. Malformed lines are skipped; a handler error stops the
// replay.
func (w *WALRepository) Replay(ctx context.Context, handler func(record domain.LogRecord) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentSegment != nil {
		w.currentSegment.Close()
		w.currentSegment = nil
	}

	segments, err := w.getSortedSegments()
	if err != nil {
		return err
	}

	if len(segments) == 0 {
		w.logger.Info("WAL is empty, nothing to replay")
		return nil
	}
	w.logger.Info("starting WAL replay", "segment_count", len(segments))

	for _, segmentPath := range segments {
		if err := w.replaySegment(ctx, segmentPath, handler); err != nil {
			return err
		}
	}

	w.logger.Info("WAL replay completed")
	return nil
}

func (w *WALRepository) replaySegment(ctx context.Context, path string, handler func(record domain.LogRecord) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open segment %s for replay: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var record domain.LogRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			w.logger.Warn("failed to unmarshal record from WAL, skipping", "error", err, "line", scanner.Text())
			continue
		}
		if err := handler(record); err != nil {
			w.logger.Error("WAL replay handler failed, stopping replay", "error", err)
			return fmt.Errorf("replay handler failed: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error scanning segment %s: %w", path, err)
	}
	return nil
}

// Truncate removes all segment files and starts a fresh one.
func (w *WALRepository) Truncate(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentSegment != nil {
		w.currentSegment.Close()
		w.currentSegment = nil
	}

	segments, err := w.getSortedSegments()
	if err != nil {
		return err
	}

	for _, segmentPath := range segments {
		if err := os.Remove(segmentPath); err != nil {
			w.logger.Error("failed to remove WAL segment", "path", segmentPath, "error", err)
		}
	}

	w.logger.Info("WAL truncated")
	return w.openLatestSegment()
}

// Close syncs and closes the current segment.
func (w *WALRepository) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentSegment == nil {
		return nil
	}
	if err := w.currentSegment.Sync(); err != nil {
		w.logger.Error("failed to sync WAL segment on close", "error", err)
	}
	err := w.currentSegment.Close()
	w.currentSegment = nil
	return err
}

func (w *WALRepository) rotate() error {
	if w.currentSegment != nil {
		if err := w.currentSegment.Sync(); err != nil {
			w.logger.Error("failed to sync WAL segment before rotating", "error", err)
		}
		if err := w.currentSegment.Close(); err != nil {
			w.logger.Error("failed to close WAL segment before rotating", "error", err)
		}
		w.currentSegment = nil
	}

	segmentName := fmt.Sprintf("%s%d.log", segmentPrefix, time.Now().UnixNano())
	path := filepath.Join(w.dir, segmentName)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create new WAL segment %s: %w", path, err)
	}

	w.currentSegment = f
	w.currentSize = 0
	w.logger.Info("rotated to new WAL segment", "path", path)
	return nil
}

// openLatestSegment reopens the newest existing segment for appending, or
// rotates to a fresh one when none exists.
func (w *WALRepository) openLatestSegment() error {
	segments, err := w.getSortedSegments()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return w.rotate()
	}

	latest := segments[len(segments)-1]
	f, err := os.OpenFile(latest, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open WAL segment %s: %w", latest, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat WAL segment %s: %w", latest, err)
	}

	w.currentSegment = f
	w.currentSize = info.Size()
	return nil
}

// getSortedSegments returns segment paths sorted oldest first. Segment names
// embed a nanosecond timestamp, so lexical order is creation order.
func (w *WALRepository) getSortedSegments() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAL directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), segmentPrefix) {
			segments = append(segments, filepath.Join(w.dir, entry.Name()))
		}
	}
	sort.Strings(segments)
	return segments, nil
}

func (w *WALRepository) calculateTotalSize() (int64, error) {
	segments, err := w.getSortedSegments()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, segmentPath := range segments {
		info, err := os.Stat(segmentPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
