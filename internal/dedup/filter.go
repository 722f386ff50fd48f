package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/logsieve/internal/adapter/metrics"
	"github.com/user/logsieve/internal/domain"
)

const summaryTimeLayout = time.RFC3339Nano

// Filter detects periodic repetition in a record stream and collapses each
// repeated run into a single summary record, forwarding everything else to
// the downstream dispatcher unchanged.
//
// The filter keeps a window of the last 2*maxPeriod records. While idle, each
// incoming record is forwarded and the window is searched for a repeating
// cycle of length up to maxPeriod. Once a cycle confirms, records that keep
// continuing it are absorbed; the first record that breaks the cycle triggers
// a summary ("Skipped N duplicate messages with step P from .. to ..") sent
// immediately before it. The record that completes the confirming repeat is
// itself still forwarded, so the first cycle and one full confirming cycle
// are always visible before suppression begins.
//
// All timestamps come from the records themselves; the filter never reads
// the wall clock. Errors from the dispatcher propagate unchanged.
type Filter struct {
	maxPeriod   int
	notifyLevel domain.Level
	dispatch    domain.Dispatcher
	logger      *slog.Logger
	metrics     *metrics.FilterMetrics
	mu          sync.Locker

	window    *window
	period    int // active skip period, 0 while idle
	skipped   int // records absorbed in the current run
	skipStart time.Time
	skipEnd   time.Time
}

// nopLocker is the concurrency policy for single-threaded pipelines: the
// caller already serializes access, so no locking overhead is paid.
type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

// NewFilter creates a Filter. maxPeriod bounds the longest cycle searched
// for. Summaries are emitted at notifyLevel. lock is the concurrency policy;
// pass &sync.Mutex{} when multiple goroutines share the filter, or nil when
// the caller guarantees single-threaded use. metrics may be nil.
func NewFilter(maxPeriod int, notifyLevel domain.Level, dispatch domain.Dispatcher, logger *slog.Logger, m *metrics.FilterMetrics, lock sync.Locker) *Filter {
	if maxPeriod < 1 {
		maxPeriod = 1
	}
	if lock == nil {
		lock = nopLocker{}
	}
	return &Filter{
		maxPeriod:   maxPeriod,
		notifyLevel: notifyLevel,
		dispatch:    dispatch,
		logger:      logger.With("component", "dedup_filter"),
		metrics:     m,
		mu:          lock,
		window:      newWindow(2 * maxPeriod),
	}
}

// Process accepts one record and synchronously forwards zero, one, or two
// records downstream: the record itself when it is not absorbed, preceded by
// a summary record when it ends a skip run.
func (f *Filter) Process(ctx context.Context, rec domain.LogRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.window.append(rec)
	f.window.evictOverCapacity()

	if f.period == 0 {
		// Idle: look for a new cycle. The record confirming the repeat is
		// still forwarded; absorption starts with the next continuation.
		f.period = findPeriod(f.window, f.maxPeriod)
		return f.forward(ctx, rec)
	}

	if f.window.textAt(0) == f.window.textAt(f.period) {
		// The record continues the active cycle.
		if f.skipped == 0 {
			f.skipStart = rec.Timestamp
		}
		f.skipped++
		if f.metrics != nil {
			f.metrics.Absorbed.Inc()
		}
		return nil
	}

	// The cycle is broken. The record before the current one was the last
	// that still matched; it closes the run and serves as the summary
	// template.
	template := f.window.recordAt(1)
	f.skipEnd = template.Timestamp
	period, skipped := f.period, f.skipped
	f.period = 0
	f.skipped = 0

	if skipped > 0 {
		if err := f.forwardSummary(ctx, period, skipped, template); err != nil {
			return err
		}
	}
	return f.forward(ctx, rec)
}

// Reset returns the filter to its initial empty, inactive state.
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.window = newWindow(2 * f.maxPeriod)
	f.period = 0
	f.skipped = 0
	f.skipStart = time.Time{}
	f.skipEnd = time.Time{}
}

func (f *Filter) forward(ctx context.Context, rec domain.LogRecord) error {
	if f.metrics != nil {
		f.metrics.Forwarded.Inc()
	}
	return f.dispatch.Forward(ctx, rec)
}

func (f *Filter) forwardSummary(ctx context.Context, period, skipped int, template domain.LogRecord) error {
	summary := domain.LogRecord{
		ID:         uuid.NewString(),
		ReceivedAt: template.ReceivedAt,
		Timestamp:  template.Timestamp,
		Source:     template.Source,
		Logger:     template.Logger,
		Level:      f.notifyLevel,
		Message: fmt.Sprintf("Skipped %d duplicate messages with step %d from %s to %s.",
			skipped, period, f.skipStart.Format(summaryTimeLayout), f.skipEnd.Format(summaryTimeLayout)),
	}

	f.logger.Debug("collapsed duplicate run",
		"period", period,
		"skipped", skipped,
		"from", f.skipStart,
		"to", f.skipEnd,
	)
	if f.metrics != nil {
		f.metrics.Summaries.Inc()
	}
	return f.dispatch.Forward(ctx, summary)
}
