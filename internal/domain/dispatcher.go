package domain

import "context"

// Dispatcher sends one record to a downstream destination. Implementations
// define their own failure semantics; callers see errors unchanged.
type Dispatcher interface {
	Forward(ctx context.Context, record LogRecord) error
}
