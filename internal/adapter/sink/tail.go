package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/user/logsieve/internal/domain"
)

// TailBroker streams forwarded records to connected SSE clients, giving a
// live tail of the pipeline output after deduplication. It is registered as
// one of the fan-out destinations; slow or absent clients never block the
// forward path.
type TailBroker struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

// NewTailBroker creates a TailBroker.
func NewTailBroker(logger *slog.Logger) *TailBroker {
	return &TailBroker{
		logger:  logger.With("component", "tail_broker"),
		clients: make(map[chan []byte]struct{}),
	}
}

// Forward broadcasts the record to every connected client. Records are
// dropped per client when its channel is full; the error is always nil so a
// lagging tail never stalls the pipeline.
func (b *TailBroker) Forward(ctx context.Context, record domain.LogRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		b.logger.Error("failed to marshal record for tail stream", "error", err, "record_id", record.ID)
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- payload:
		default:
			// Slow client, drop rather than block the broadcast.
		}
	}
	return nil
}

// ServeHTTP handles new SSE client connections.
func (b *TailBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	messageChan := make(chan []byte, 64)
	b.addClient(messageChan)
	defer b.removeClient(messageChan)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messageChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (b *TailBroker) addClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
	b.logger.Info("tail client connected")
}

func (b *TailBroker) removeClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
		b.logger.Info("tail client disconnected")
	}
}
