// Package cache holds the client's last known listing set, applies mutations
// optimistically and reconciles with the server after every round trip.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"propdash/pkg/logger"
	"propdash/pkg/model"
)

// PendingPrefix marks ids assigned locally to listings the server has not confirmed yet.
const PendingPrefix = "pending-"

// Source reads the authoritative listing set.
type Source func(ctx context.Context) ([]model.Listing, error)

// Send performs the network request for a mutation.
type Send func(ctx context.Context) error

type pending struct {
	id       string
	mutation Mutation
	state    State
}

// Reconciler owns the cached listing set. Each Apply runs one mutation
// through the state machine in state.go. Refreshes are not ordered: the
// last one to complete replaces the set, and no merge is attempted.
type Reconciler struct {
	mu       sync.Mutex
	listings []model.Listing
	lastGood []model.Listing
	pending  map[string]*pending

	persistMu sync.Mutex

	storage      Storage
	source       Source
	onTransition func(Transition)
	log          *logger.Logger
}

type Option func(*Reconciler)

// WithObserver registers fn to be called on every state transition. fn runs
// with the reconciler locked and must not call back into it.
func WithObserver(fn func(Transition)) Option {
	return func(r *Reconciler) {
		r.onTransition = fn
	}
}

func NewReconciler(storage Storage, source Source, log *logger.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		pending: make(map[string]*pending),
		storage: storage,
		source:  source,
		log:     log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads the persisted slot so the last known state, optimistic
// changes included, is shown before the first refresh.
func (r *Reconciler) Load(ctx context.Context) error {
	listings, err := r.storage.Load(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings = listings
	r.lastGood = listings
	return nil
}

func (r *Reconciler) Listings() []model.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.listings)
}

// Busy reports whether any mutation is waiting on the network.
func (r *Reconciler) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pending {
		if p.state == StateOptimistic {
			return true
		}
	}
	return false
}

func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Apply shows m locally, persists it, runs send and reconciles. The error
// from send is returned unchanged; after Apply returns the cached set is
// the best state currently known to be authoritative.
func (r *Reconciler) Apply(ctx context.Context, m Mutation, send Send) error {
	if m.Kind == KindAdd && m.ID == "" {
		m.ID = PendingPrefix + uuid.NewString()
		m.Listing.ID = m.ID
	}
	p := &pending{id: uuid.NewString(), mutation: m, state: StateIdle}

	r.mu.Lock()
	r.pending[p.id] = p
	r.transition(p, StateOptimistic, nil)
	r.listings = m.apply(r.listings)
	r.mu.Unlock()

	r.persist(ctx)

	if err := send(ctx); err != nil {
		r.mu.Lock()
		r.transition(p, StateFailed, err)
		r.mu.Unlock()

		if refreshErr := r.refresh(ctx, true); refreshErr != nil {
			r.log.Warn("Refresh after failed mutation used last known-good state",
				"kind", m.Kind.String(),
				"listing_id", m.ID,
				"error", refreshErr,
			)
		}

		r.mu.Lock()
		r.transition(p, StateRolledBack, err)
		r.transition(p, StateIdle, nil)
		delete(r.pending, p.id)
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	r.transition(p, StateConfirmed, nil)
	r.mu.Unlock()

	if err := r.refresh(ctx, false); err != nil {
		r.log.Warn("Refresh after confirmed mutation failed; keeping local state",
			"kind", m.Kind.String(),
			"listing_id", m.ID,
			"error", err,
		)
	}

	r.mu.Lock()
	r.transition(p, StateIdle, nil)
	delete(r.pending, p.id)
	r.mu.Unlock()
	return nil
}

// Refresh replaces the cached set with the authoritative one. On failure
// the current set is kept.
func (r *Reconciler) Refresh(ctx context.Context) error {
	return r.refresh(ctx, false)
}

// refresh with rollback set falls back to the last known-good set when the
// source cannot be read.
func (r *Reconciler) refresh(ctx context.Context, rollback bool) error {
	listings, err := r.source(ctx)

	r.mu.Lock()
	if err == nil {
		r.listings = clone(listings)
		r.lastGood = clone(listings)
	} else if rollback {
		r.listings = clone(r.lastGood)
	} else {
		r.mu.Unlock()
		return fmt.Errorf("refresh listings: %w", err)
	}
	r.mu.Unlock()

	r.persist(ctx)
	if err != nil {
		return fmt.Errorf("refresh listings: %w", err)
	}
	return nil
}

// transition must be called with r.mu held.
func (r *Reconciler) transition(p *pending, to State, err error) {
	if !CanTransition(p.state, to) {
		panic(fmt.Sprintf("%v: %s -> %s", ErrInvalidTransition, p.state, to))
	}
	t := Transition{
		MutationID: p.id,
		Kind:       p.mutation.Kind,
		ListingID:  p.mutation.ID,
		From:       p.state,
		To:         to,
		Err:        err,
	}
	p.state = to
	r.log.Debug("Cache mutation transition",
		"mutation_id", t.MutationID,
		"kind", t.Kind.String(),
		"listing_id", t.ListingID,
		"from", t.From.String(),
		"to", t.To.String(),
	)
	if r.onTransition != nil {
		r.onTransition(t)
	}
}

// persist saves the set as it is when the save starts, so the slot ends up
// matching memory even when saves from concurrent mutations interleave.
func (r *Reconciler) persist(ctx context.Context) {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	snapshot := clone(r.listings)
	r.mu.Unlock()

	if err := r.storage.Save(ctx, snapshot); err != nil {
		r.log.Warn("Failed to persist listing cache", "error", err)
	}
}

func IsPendingID(id string) bool {
	return strings.HasPrefix(id, PendingPrefix)
}

func clone(listings []model.Listing) []model.Listing {
	if listings == nil {
		return nil
	}
	out := make([]model.Listing, len(listings))
	copy(out, listings)
	return out
}
