// Package store provides local persistence for the browsing client.
package store

import (
	"context"
	"time"

	"github.com/cascade-ml/cascade-ui/internal/provider"
)

// SnapshotStore keeps the last good backend response per request so that
// views can still be served while the backend is down.
type SnapshotStore interface {
	provider.SnapshotStore
	// Prune deletes snapshots saved before cutoff and returns how many.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
	// Count returns the number of stored snapshots.
	Count(ctx context.Context) (int, error)
	// Close releases the underlying database.
	Close() error
}
