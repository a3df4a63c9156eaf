package provider

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/singleflight"
)

// Dedup collapses identical read requests that are in flight at the same
// time into one backend call. Mutations always go through.
//
// The shared call is detached from the cancellation of whichever caller
// started it; each caller stops waiting when its own context ends.
type Dedup struct {
	next  Provider
	group singleflight.Group
}

// NewDedup wraps next.
func NewDedup(next Provider) *Dedup {
	return &Dedup{next: next}
}

// Do implements Provider.
func (d *Dedup) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	if req.Endpoint.Mutates() {
		return d.next.Do(ctx, req)
	}
	key, err := req.Key()
	if err != nil {
		return nil, err
	}

	ch := d.group.DoChan(key, func() (any, error) {
		return d.next.Do(context.WithoutCancel(ctx), req)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	// Each caller gets its own copy of the shared body.
	data, _ := res.Val.(json.RawMessage)
	out := make(json.RawMessage, len(data))
	copy(out, data)
	return out, nil
}
