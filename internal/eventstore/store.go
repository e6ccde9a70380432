// Package eventstore persists the generation and revalidation event log and
// folds it into a run history.
package eventstore

import (
	"context"
	"time"
)

// Store persists and retrieves events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, runID, eventType string, payload []byte, metadata map[string]string) error

	// GetByRunID retrieves all events of one run, oldest first.
	GetByRunID(ctx context.Context, runID string) ([]Event, error)

	// GetRange retrieves events within a time range, oldest first.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}

// AppendEvent stores a typed event.
func AppendEvent(ctx context.Context, s Store, e Event) error {
	return s.Append(ctx, e.RunID(), e.Type(), e.Payload(), e.Metadata())
}
