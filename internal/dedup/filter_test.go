package dedup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/logsieve/internal/domain"
	"github.com/user/logsieve/internal/domain/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// feed runs the given payload texts through the filter with strictly
// increasing timestamps starting at base.
func feed(t *testing.T, f *Filter, base time.Time, msgs []string) {
	t.Helper()
	for i, msg := range msgs {
		record := domain.LogRecord{
			ID:        fmt.Sprintf("rec-%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
			Source:    "app.go:42",
			Logger:    "app",
			Level:     domain.LevelInfo,
			Message:   msg,
		}
		if err := f.Process(context.Background(), record); err != nil {
			t.Fatalf("Process(%q) returned error: %v", msg, err)
		}
	}
}

func cycles(n int, cycle ...string) []string {
	var out []string
	for i := 0; i < n; i++ {
		out = append(out, cycle...)
	}
	return out
}

func TestFilter_ReferenceScenario(t *testing.T) {
	// 10 repetitions of a 3-record cycle followed by a breaking record:
	// the first cycle passes (no pattern yet), the second confirms it and
	// still passes, the remaining 8 cycles (24 records) collapse into one
	// summary positioned immediately before the breaking record.
	dispatch := &mocks.MockDispatcher{}
	f := NewFilter(10, domain.LevelInfo, dispatch, testLogger(), nil, nil)

	base := time.Date(2024, 7, 25, 9, 48, 21, 0, time.UTC)
	input := append(cycles(10, "Hello1", "Hello2", "Hello3"), "Different Hello")
	feed(t, f, base, input)

	got := dispatch.Messages()
	want := []string{
		"Hello1", "Hello2", "Hello3",
		"Hello1", "Hello2", "Hello3",
		fmt.Sprintf("Skipped 24 duplicate messages with step 3 from %s to %s.",
			base.Add(6*time.Millisecond).Format(summaryTimeLayout),
			base.Add(29*time.Millisecond).Format(summaryTimeLayout)),
		"Different Hello",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("forwarded sequence mismatch:\ngot  %q\nwant %q", got, want)
	}

	summary := dispatch.Forwarded[6]
	lastMatch := base.Add(29 * time.Millisecond) // 30th input record
	if !summary.Timestamp.Equal(lastMatch) {
		t.Errorf("summary timestamp should come from the last matching record: got %v, want %v", summary.Timestamp, lastMatch)
	}
	if summary.Source != "app.go:42" || summary.Logger != "app" {
		t.Errorf("summary should copy source and logger from the template record, got %q/%q", summary.Source, summary.Logger)
	}
	if summary.Level != domain.LevelInfo {
		t.Errorf("summary level should be the notification level, got %q", summary.Level)
	}
}

func TestFilter_NoRepetitionPassThrough(t *testing.T) {
	dispatch := &mocks.MockDispatcher{}
	f := NewFilter(8, domain.LevelInfo, dispatch, testLogger(), nil, nil)

	var input []string
	for i := 0; i < 50; i++ {
		input = append(input, fmt.Sprintf("unique message %d", i))
	}
	feed(t, f, time.Now(), input)

	if !reflect.DeepEqual(dispatch.Messages(), input) {
		t.Fatalf("expected every record forwarded unchanged and in order")
	}
}

func TestFilter_SingleRecordStream(t *testing.T) {
	dispatch := &mocks.MockDispatcher{}
	f := NewFilter(8, domain.LevelInfo, dispatch, testLogger(), nil, nil)

	feed(t, f, time.Now(), []string{"only one"})

	if got := dispatch.Messages(); !reflect.DeepEqual(got, []string{"only one"}) {
		t.Fatalf("expected the single record forwarded with no summary, got %q", got)
	}
}

func TestFilter_PatternBrokenImmediately(t *testing.T) {
	// A period confirms but the very next record breaks it: the breaking
	// record is forwarded and no summary is emitted, since nothing was
	// absorbed.
	dispatch := &mocks.MockDispatcher{}
	f := NewFilter(8, domain.LevelInfo, dispatch, testLogger(), nil, nil)

	input := []string{"a", "b", "a", "b", "c"}
	feed(t, f, time.Now(), input)

	if got := dispatch.Messages(); !reflect.DeepEqual(got, input) {
		t.Fatalf("expected pass-through with no summary, got %q", got)
	}
}

func TestFilter_Conservation(t *testing.T) {
	// Forwarded plain records plus the counts reported by summaries must
	// account for every input record.
	inputs := [][]string{
		append(cycles(10, "Hello1", "Hello2", "Hello3"), "Different Hello"),
		append(append(cycles(5, "x"), "y"), cycles(4, "p", "q")...),
		{"a", "b", "c", "a", "b", "c", "a", "b", "c", "d", "d", "d", "d", "e"},
	}

	for i, input := range inputs {
		t.Run(fmt.Sprintf("Input %d", i), func(t *testing.T) {
			dispatch := &mocks.MockDispatcher{}
			f := NewFilter(10, domain.LevelWarn, dispatch, testLogger(), nil, nil)
			feed(t, f, time.Now(), input)

			accounted := 0
			for _, fwd := range dispatch.Forwarded {
				var skipped, period int
				if n, _ := fmt.Sscanf(fwd.Message, "Skipped %d duplicate messages with step %d from", &skipped, &period); n == 2 {
					accounted += skipped
					continue
				}
				accounted++
			}

			// Records still absorbed in an unfinished run at end of input are
			// counted from the filter's live state.
			accounted += f.skipped

			if accounted != len(input) {
				t.Fatalf("conservation violated: %d accounted, %d input records", accounted, len(input))
			}
		})
	}
}

func TestFilter_WindowBound(t *testing.T) {
	dispatch := &mocks.MockDispatcher{}
	f := NewFilter(5, domain.LevelInfo, dispatch, testLogger(), nil, nil)

	var input []string
	for i := 0; i < 500; i++ {
		input = append(input, fmt.Sprintf("m%d", i%7))
	}
	feed(t, f, time.Now(), input)

	if f.window.len() > 10 {
		t.Fatalf("window holds %d entries, bound is %d", f.window.len(), 10)
	}
}

func TestFilter_LongPeriodInvisibleBeyondWindow(t *testing.T) {
	// The window holds 2*maxPeriod records, so cycles longer than maxPeriod
	// can never confirm.
	dispatch := &mocks.MockDispatcher{}
	f := NewFilter(2, domain.LevelInfo, dispatch, testLogger(), nil, nil)

	input := cycles(6, "h1", "h2", "h3")
	feed(t, f, time.Now(), input)

	if got := dispatch.Messages(); !reflect.DeepEqual(got, input) {
		t.Fatalf("period-3 cycle must be invisible with maxPeriod=2, got %q", got)
	}
}

func TestFilter_RepeatedRunsIdempotent(t *testing.T) {
	input := append(cycles(10, "Hello1", "Hello2", "Hello3"), "Different Hello")
	base := time.Date(2024, 7, 25, 9, 48, 21, 0, time.UTC)

	run := func() []string {
		dispatch := &mocks.MockDispatcher{}
		f := NewFilter(10, domain.LevelInfo, dispatch, testLogger(), nil, nil)
		feed(t, f, base, input)
		return dispatch.Messages()
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("runs over identical input diverged:\nfirst  %q\nsecond %q", first, second)
	}
}

func TestFilter_ResetClearsState(t *testing.T) {
	dispatch := &mocks.MockDispatcher{}
	f := NewFilter(10, domain.LevelInfo, dispatch, testLogger(), nil, nil)
	base := time.Date(2024, 7, 25, 9, 48, 21, 0, time.UTC)
	input := append(cycles(10, "Hello1", "Hello2", "Hello3"), "Different Hello")

	feed(t, f, base, input)
	firstRun := dispatch.Messages()

	f.Reset()
	dispatch.Forwarded = nil
	feed(t, f, base, input)

	if !reflect.DeepEqual(dispatch.Messages(), firstRun) {
		t.Fatalf("a reset filter must reproduce the same forwarded sequence")
	}
}

func TestFilter_DispatchErrorPropagates(t *testing.T) {
	wantErr := errors.New("destination unavailable")
	dispatch := &mocks.MockDispatcher{
		ForwardFn: func(ctx context.Context, record domain.LogRecord) error {
			return wantErr
		},
	}
	f := NewFilter(4, domain.LevelInfo, dispatch, testLogger(), nil, nil)

	err := f.Process(context.Background(), domain.LogRecord{Message: "boom"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected dispatcher error to propagate unchanged, got %v", err)
	}
}

func TestFilter_MutexPolicy(t *testing.T) {
	// Shared-filter variant: concurrent producers serialized by a real
	// mutex. Each goroutine sends unique payloads, so everything must come
	// out the other side exactly once.
	dispatch := &mocks.MockDispatcher{}
	f := NewFilter(4, domain.LevelInfo, dispatch, testLogger(), nil, &sync.Mutex{})

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				record := domain.LogRecord{
					Timestamp: time.Now(),
					Message:   fmt.Sprintf("w%d-%d", w, i),
				}
				if err := f.Process(context.Background(), record); err != nil {
					t.Errorf("Process failed: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	forwarded := dispatch.Messages()
	plain := 0
	for _, msg := range forwarded {
		if !strings.HasPrefix(msg, "Skipped ") {
			plain++
		}
	}
	if plain+f.skipped != workers*perWorker {
		t.Fatalf("lost records under concurrency: %d forwarded plain, %d still absorbed, want %d total",
			plain, f.skipped, workers*perWorker)
	}
}
