package provider

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const snapshotReadTimeout = 5 * time.Second

// SnapshotStore keeps the last good response of each request.
type SnapshotStore interface {
	Put(ctx context.Context, key string, payload []byte) error
	Get(ctx context.Context, key string) (payload []byte, savedAt time.Time, ok bool, err error)
}

// Fallback serves the last good response of a read request when the backend
// is unreachable or failing, so views keep showing what they had.
//
// Item-table fetches and mutations never fall back: a failed table fetch
// must leave the table alone rather than re-apply an old payload.
type Fallback struct {
	next   Provider
	store  SnapshotStore
	logger *slog.Logger
}

// NewFallback wraps next with store.
func NewFallback(next Provider, store SnapshotStore, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{next: next, store: store, logger: logger}
}

func cacheable(e Endpoint) bool {
	return !e.Mutates() && e != EndpointLineItemTable
}

// Do implements Provider.
func (f *Fallback) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	data, err := f.next.Do(ctx, req)
	if !cacheable(req.Endpoint) {
		return data, err
	}

	key, keyErr := req.Key()
	if keyErr != nil {
		return data, err
	}

	if err == nil {
		if putErr := f.store.Put(ctx, key, data); putErr != nil {
			f.logger.Warn("failed to store snapshot", "endpoint", req.Endpoint, "error", putErr)
		}
		return data, nil
	}

	if !Recoverable(err) {
		return nil, err
	}

	// The backend call may have failed because ctx ended; the snapshot is
	// still read.
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotReadTimeout)
	defer cancel()
	cached, savedAt, ok, getErr := f.store.Get(readCtx, key)
	if getErr != nil {
		f.logger.Warn("failed to read snapshot", "endpoint", req.Endpoint, "error", getErr)
		return nil, err
	}
	if !ok {
		return nil, err
	}

	f.logger.Warn("serving snapshot after backend failure",
		"endpoint", req.Endpoint,
		"saved_at", savedAt,
		"error", err,
	)
	return json.RawMessage(cached), nil
}
