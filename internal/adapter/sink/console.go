package sink

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/user/logsieve/internal/domain"
)

// Console writes forwarded records as formatted text lines to an io.Writer,
// typically stdout.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a Console destination.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Forward writes one formatted line for the record.
func (c *Console) Forward(ctx context.Context, record domain.LogRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "[%s] [%s] [%s] %s\n",
		record.Timestamp.Format(time.RFC3339Nano), record.Logger, record.Level, record.Message)
	return err
}
