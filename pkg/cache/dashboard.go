package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"propdash/pkg/logger"
	"propdash/pkg/model"
)

// Remote is the listing API as seen by the client. *client.ListingClient
// satisfies it.
type Remote interface {
	List(ctx context.Context) ([]model.Listing, error)
	Create(ctx context.Context, fields model.ListingFields, idempotencyKey string) (*model.Listing, error)
	Update(ctx context.Context, id string, fields model.ListingFields) (*model.Listing, error)
	SetStatus(ctx context.Context, id string, status model.Status) (*model.Listing, error)
	Delete(ctx context.Context, id string) error
}

// Dashboard drives user actions through a Reconciler against a Remote.
type Dashboard struct {
	remote     Remote
	reconciler *Reconciler
}

func NewDashboard(remote Remote, storage Storage, log *logger.Logger, opts ...Option) *Dashboard {
	return &Dashboard{
		remote:     remote,
		reconciler: NewReconciler(storage, remote.List, log, opts...),
	}
}

func (d *Dashboard) Reconciler() *Reconciler {
	return d.reconciler
}

// Open shows the persisted slot and then refreshes from the server. A failed
// refresh leaves the persisted state in place and is returned.
func (d *Dashboard) Open(ctx context.Context) ([]model.Listing, error) {
	if err := d.reconciler.Load(ctx); err != nil {
		return nil, err
	}
	err := d.reconciler.Refresh(ctx)
	return d.reconciler.Listings(), err
}

func (d *Dashboard) Listings() []model.Listing {
	return d.reconciler.Listings()
}

func (d *Dashboard) Add(ctx context.Context, fields model.ListingFields) error {
	optimistic := model.Listing{Status: model.StatusAvailable}
	optimistic.Apply(fields)
	key := uuid.NewString()

	return d.reconciler.Apply(ctx, Add(optimistic), func(ctx context.Context) error {
		_, err := d.remote.Create(ctx, fields, key)
		return err
	})
}

func (d *Dashboard) Edit(ctx context.Context, id string, fields model.ListingFields) error {
	current, ok := d.find(id)
	if !ok {
		return fmt.Errorf("listing %s is not in the local cache", id)
	}
	current.Apply(fields)

	return d.reconciler.Apply(ctx, Replace(current), func(ctx context.Context) error {
		_, err := d.remote.Update(ctx, id, fields)
		return err
	})
}

func (d *Dashboard) SetStatus(ctx context.Context, id string, status model.Status) error {
	return d.reconciler.Apply(ctx, PatchStatus(id, status), func(ctx context.Context) error {
		_, err := d.remote.SetStatus(ctx, id, status)
		return err
	})
}

func (d *Dashboard) Delete(ctx context.Context, id string) error {
	return d.reconciler.Apply(ctx, Remove(id), func(ctx context.Context) error {
		return d.remote.Delete(ctx, id)
	})
}

func (d *Dashboard) find(id string) (model.Listing, bool) {
	for _, l := range d.reconciler.Listings() {
		if l.ID == id {
			return l, true
		}
	}
	return model.Listing{}, false
}
