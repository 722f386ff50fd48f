package dedup

import (
	"fmt"
	"testing"

	"github.com/user/logsieve/internal/domain"
)

func rec(msg string) domain.LogRecord {
	return domain.LogRecord{Message: msg}
}

func TestWindow_AppendAndOffsets(t *testing.T) {
	w := newWindow(4)

	for _, msg := range []string{"a", "b", "c"} {
		w.append(rec(msg))
		w.evictOverCapacity()
	}

	if w.len() != 3 {
		t.Fatalf("expected length 3, got %d", w.len())
	}
	if got := w.textAt(0); got != "c" {
		t.Errorf("offset 0 should be newest, got %q", got)
	}
	if got := w.textAt(2); got != "a" {
		t.Errorf("offset 2 should be oldest, got %q", got)
	}
	if got := w.recordAt(1).Message; got != "b" {
		t.Errorf("recordAt(1) should be %q, got %q", "b", got)
	}
}

func TestWindow_EvictsOldestOverCapacity(t *testing.T) {
	w := newWindow(4)

	for i := 0; i < 100; i++ {
		w.append(rec(fmt.Sprintf("msg-%d", i)))
		w.evictOverCapacity()
		if w.len() > 4 {
			t.Fatalf("window exceeded capacity after %d appends: %d", i+1, w.len())
		}
	}

	if w.len() != 4 {
		t.Fatalf("expected full window, got length %d", w.len())
	}
	// Newest four survive, in order.
	for offset, want := range []string{"msg-99", "msg-98", "msg-97", "msg-96"} {
		if got := w.textAt(offset); got != want {
			t.Errorf("offset %d: expected %q, got %q", offset, want, got)
		}
	}
}

func TestWindow_WrapAround(t *testing.T) {
	w := newWindow(2)

	// Enough appends to wrap the backing array several times.
	for i := 0; i < 7; i++ {
		w.append(rec(fmt.Sprintf("m%d", i)))
		w.evictOverCapacity()
	}

	if got := w.textAt(0); got != "m6" {
		t.Errorf("expected newest m6, got %q", got)
	}
	if got := w.textAt(1); got != "m5" {
		t.Errorf("expected m5, got %q", got)
	}
}
