package sink

import (
	"context"
	"sync"

	"github.com/user/logsieve/internal/domain"
)

// Fanout broadcasts every forwarded record to a set of destinations. It is
// the dispatch capability handed to the dedup filter; destinations can be
// added and removed at runtime, with no ordering guarantee between those
// administrative operations and in-flight records.
type Fanout struct {
	mu    sync.RWMutex
	dests []domain.Dispatcher
}

// NewFanout creates a Fanout over the given destinations.
func NewFanout(dests ...domain.Dispatcher) *Fanout {
	return &Fanout{dests: dests}
}

// Forward sends the record to every destination in order. The first
// destination error aborts the broadcast and is returned unchanged.
func (f *Fanout) Forward(ctx context.Context, record domain.LogRecord) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, d := range f.dests {
		if err := d.Forward(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// AddDestination registers an additional destination.
func (f *Fanout) AddDestination(d domain.Dispatcher) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dests = append(f.dests, d)
}

// RemoveDestination unregisters a destination previously added, matched by
// identity.
func (f *Fanout) RemoveDestination(d domain.Dispatcher) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.dests {
		if existing == d {
			f.dests = append(f.dests[:i], f.dests[i+1:]...)
			return
		}
	}
}
