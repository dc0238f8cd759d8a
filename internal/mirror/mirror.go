package mirror

import (
	"context"

	"propdash/pkg/model"
)

// Mirror accepts a committed listing write for replication. Implementations
// must not block on the external endpoint and never return an error.
type Mirror interface {
	Mirror(ctx context.Context, event Event, listing model.Listing)
}

// Deliverer performs a single delivery attempt.
type Deliverer interface {
	Deliver(ctx context.Context, payload Payload) error
}

// Noop is used when no mirror base URL is configured.
type Noop struct{}

func (Noop) Mirror(context.Context, Event, model.Listing) {}
