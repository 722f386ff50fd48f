package dedup

import "github.com/user/logsieve/internal/domain"

// window is a bounded history of the most recently processed records,
// paired with their payload texts for cheap comparison. It is a ring over a
// fixed backing array; the array holds one slot more than the capacity so a
// freshly appended record can coexist with a full window until trimmed.
type window struct {
	records  []domain.LogRecord
	texts    []string
	head     int // index of the oldest entry
	size     int
	capacity int
}

func newWindow(capacity int) *window {
	return &window{
		records:  make([]domain.LogRecord, capacity+1),
		texts:    make([]string, capacity+1),
		capacity: capacity,
	}
}

func (w *window) len() int { return w.size }

// append pushes a record and its payload text to the back.
func (w *window) append(rec domain.LogRecord) {
	tail := (w.head + w.size) % len(w.records)
	w.records[tail] = rec
	w.texts[tail] = rec.Message
	w.size++
}

// evictOverCapacity drops entries from the front until the window fits its
// capacity again.
func (w *window) evictOverCapacity() {
	for w.size > w.capacity {
		w.records[w.head] = domain.LogRecord{}
		w.texts[w.head] = ""
		w.head = (w.head + 1) % len(w.records)
		w.size--
	}
}

// textAt returns the payload text at the given offset from the newest entry;
// offset 0 is the newest. The caller keeps offset < len.
func (w *window) textAt(offset int) string {
	return w.texts[w.index(offset)]
}

// recordAt returns the record at the given offset from the newest entry.
func (w *window) recordAt(offset int) domain.LogRecord {
	return w.records[w.index(offset)]
}

func (w *window) index(offset int) int {
	n := len(w.records)
	return (w.head + w.size - 1 - offset + n) % n
}
