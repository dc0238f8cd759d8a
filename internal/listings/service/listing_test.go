package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	listingserrors "propdash/internal/listings/errors"
	"propdash/internal/listings/validator"
	"propdash/internal/metrics"
	"propdash/internal/mirror"
	"propdash/pkg/config"
	apperrors "propdash/pkg/errors"
	"propdash/pkg/logger"
	"propdash/pkg/model"
)

// ────────────────────────────────────────────────
// In-memory repository with the same ownership rules as the Mongo one
// ────────────────────────────────────────────────

type memoryRepository struct {
	mu       sync.Mutex
	seq      int
	listings map[string]model.Listing
	failWith error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{listings: make(map[string]model.Listing)}
}

func (m *memoryRepository) Create(ctx context.Context, listing *model.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.seq++
	listing.ID = fmt.Sprintf("%024x", m.seq)
	m.listings[listing.ID] = *listing
	return nil
}

func (m *memoryRepository) FindByOwner(ctx context.Context, ownerID string) ([]*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]*model.Listing, 0)
	for _, l := range m.listings {
		if l.UserID == ownerID {
			l := l
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memoryRepository) owned(id, ownerID string) (model.Listing, error) {
	if len(id) != 24 {
		return model.Listing{}, fmt.Errorf("%w: %s", listingserrors.ErrInvalidID, id)
	}
	l, ok := m.listings[id]
	if !ok || l.UserID != ownerID {
		return model.Listing{}, fmt.Errorf("%w: %s", listingserrors.ErrNotFound, id)
	}
	return l, nil
}

func (m *memoryRepository) FindOwned(ctx context.Context, id, ownerID string) (*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	l, err := m.owned(id, ownerID)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (m *memoryRepository) UpdateFields(ctx context.Context, id, ownerID string, fields model.ListingFields, updatedAt time.Time) (*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.owned(id, ownerID)
	if err != nil {
		return nil, err
	}
	l.Apply(fields)
	l.UpdatedAt = updatedAt
	m.listings[id] = l
	return &l, nil
}

func (m *memoryRepository) UpdateStatus(ctx context.Context, id, ownerID string, status model.Status, updatedAt time.Time) (*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.owned(id, ownerID)
	if err != nil {
		return nil, err
	}
	l.Status = status
	l.UpdatedAt = updatedAt
	m.listings[id] = l
	return &l, nil
}

func (m *memoryRepository) Delete(ctx context.Context, id, ownerID string) (*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, err := m.owned(id, ownerID)
	if err != nil {
		return nil, err
	}
	delete(m.listings, id)
	return &l, nil
}

type mirrorCall struct {
	event   mirror.Event
	listing model.Listing
}

type recordingMirror struct {
	mu    sync.Mutex
	calls []mirrorCall
}

func (r *recordingMirror) Mirror(ctx context.Context, event mirror.Event, listing model.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, mirrorCall{event: event, listing: listing})
}

// ────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────

var (
	alice = model.Identity{ID: "alice", Name: "Alice"}
	bob   = model.Identity{ID: "bob", Name: "Bob"}
)

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{Level: "error", Output: io.Discard, Service: "test"}),
	}
}

func newTestService(repo *memoryRepository, m mirror.Mirror) *listingService {
	cfg := testConfig()
	return NewListingService(repo, validator.NewListingValidator(cfg.Log), m, metrics.Nop{}, cfg).(*listingService)
}

func mapleFlat() *model.ListingFields {
	return &model.ListingFields{
		Name:      "Maple Flat",
		Price:     "$1200/mo",
		Rooms:     "2BR",
		Location:  "Downtown",
		City:      "Springfield",
		Utilities: "Included",
		Parking:   "1 space",
		PetPolicy: "Cats OK",
		Available: "Immediately",
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

// ────────────────────────────────────────────────
// Tests
// ────────────────────────────────────────────────

func TestCreate_TrimsAndDefaultsStatus(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, mirror.Noop{})

	fields := mapleFlat()
	fields.Name = "  Maple Flat  "
	fields.Note = "\tcorner unit "

	created, err := svc.Create(context.Background(), alice, fields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Error("expected an assigned id")
	}
	if created.Status != model.StatusAvailable {
		t.Errorf("status = %q, want Available", created.Status)
	}
	if created.UserID != alice.ID {
		t.Errorf("owner = %q, want %q", created.UserID, alice.ID)
	}

	list, err := svc.List(context.Background(), alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(list))
	}
	if list[0].Name != "Maple Flat" || list[0].Note != "corner unit" {
		t.Errorf("fields not trimmed: name=%q note=%q", list[0].Name, list[0].Note)
	}
}

func TestCreate_MissingFields(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, mirror.Noop{})

	fields := mapleFlat()
	fields.City = "   "
	fields.PetPolicy = ""

	_, err := svc.Create(context.Background(), alice, fields)
	assertCode(t, err, apperrors.CodeValidation)

	appErr := apperrors.AsAppError(err)
	if appErr.Message != "All fields except Note are required" {
		t.Errorf("message = %q", appErr.Message)
	}
	got, _ := appErr.Details["fields"].([]string)
	if len(got) != 2 || got[0] != "city" || got[1] != "petPolicy" {
		t.Errorf("fields = %v, want [city petPolicy]", got)
	}
	if len(repo.listings) != 0 {
		t.Error("invalid listing must not be persisted")
	}
}

func TestCreate_NoteIsOptional(t *testing.T) {
	svc := newTestService(newMemoryRepository(), mirror.Noop{})

	created, err := svc.Create(context.Background(), alice, mapleFlat())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Note != "" {
		t.Errorf("note = %q, want empty", created.Note)
	}
}

func TestOperations_RequireIdentity(t *testing.T) {
	svc := newTestService(newMemoryRepository(), mirror.Noop{})
	ctx := context.Background()
	anon := model.Identity{}

	_, err := svc.Create(ctx, anon, mapleFlat())
	assertCode(t, err, apperrors.CodeUnauthorized)
	_, err = svc.List(ctx, anon)
	assertCode(t, err, apperrors.CodeUnauthorized)
	_, err = svc.Update(ctx, anon, "x", mapleFlat())
	assertCode(t, err, apperrors.CodeUnauthorized)
	_, err = svc.SetStatus(ctx, anon, "x", &model.StatusChange{Status: model.StatusRented})
	assertCode(t, err, apperrors.CodeUnauthorized)
	assertCode(t, svc.Delete(ctx, anon, "x"), apperrors.CodeUnauthorized)
}

func TestOwnershipIsolation(t *testing.T) {
	svc := newTestService(newMemoryRepository(), mirror.Noop{})
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, mapleFlat())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, err := svc.List(ctx, bob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("bob sees %d of alice's listings", len(list))
	}

	_, err = svc.Get(ctx, bob, created.ID)
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = svc.Update(ctx, bob, created.ID, mapleFlat())
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = svc.SetStatus(ctx, bob, created.ID, &model.StatusChange{Status: model.StatusRented})
	assertCode(t, err, apperrors.CodeNotFound)
	assertCode(t, svc.Delete(ctx, bob, created.ID), apperrors.CodeNotFound)

	// the foreign attempt and a missing id are indistinguishable
	_, foreign := svc.Get(ctx, bob, created.ID)
	_, missing := svc.Get(ctx, bob, fmt.Sprintf("%024x", 999))
	if apperrors.AsAppError(foreign).Message != apperrors.AsAppError(missing).Message {
		t.Error("foreign and missing listings must produce the same error")
	}

	still, _ := svc.Get(ctx, alice, created.ID)
	if still == nil || still.Status != model.StatusAvailable {
		t.Error("alice's listing must be untouched")
	}
}

func TestMalformedIDIsNotFound(t *testing.T) {
	svc := newTestService(newMemoryRepository(), mirror.Noop{})

	_, err := svc.Get(context.Background(), alice, "not-an-id")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestSetStatus(t *testing.T) {
	svc := newTestService(newMemoryRepository(), mirror.Noop{})
	ctx := context.Background()

	created, _ := svc.Create(ctx, alice, mapleFlat())

	if _, err := svc.SetStatus(ctx, alice, created.ID, &model.StatusChange{Status: model.StatusAvailable}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.SetStatus(ctx, alice, created.ID, &model.StatusChange{Status: " Rented "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, bad := range []model.Status{"Sold", "rented", ""} {
		_, err := svc.SetStatus(ctx, alice, created.ID, &model.StatusChange{Status: bad})
		assertCode(t, err, apperrors.CodeValidation)
		if msg := apperrors.AsAppError(err).Message; msg != "Status must be either 'Available' or 'Rented'" {
			t.Errorf("message = %q", msg)
		}
	}

	list, _ := svc.List(ctx, alice)
	if len(list) != 1 || list[0].Status != model.StatusRented {
		t.Fatalf("expected one Rented listing, got %+v", list)
	}
}

func TestUpdate_IdenticalFieldsAdvancesUpdatedAt(t *testing.T) {
	svc := newTestService(newMemoryRepository(), mirror.Noop{})
	fixed := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, mapleFlat())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.Update(ctx, alice, created.ID, mapleFlat())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("updatedAt did not advance: %v -> %v", created.UpdatedAt, updated.UpdatedAt)
	}
	if updated.Fields() != created.Fields() || updated.ID != created.ID ||
		updated.UserID != created.UserID || updated.Status != created.Status ||
		!updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("update with identical fields changed the record: %+v vs %+v", created, updated)
	}
}

func TestUpdate_KeepsStatus(t *testing.T) {
	svc := newTestService(newMemoryRepository(), mirror.Noop{})
	ctx := context.Background()

	created, _ := svc.Create(ctx, alice, mapleFlat())
	_, _ = svc.SetStatus(ctx, alice, created.ID, &model.StatusChange{Status: model.StatusRented})

	fields := mapleFlat()
	fields.Price = "$1300/mo"
	updated, err := svc.Update(ctx, alice, created.ID, fields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.StatusRented || updated.Price != "$1300/mo" {
		t.Errorf("unexpected record after update: %+v", updated)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc := newTestService(newMemoryRepository(), mirror.Noop{})
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"First", "Second", "Third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		fields := mapleFlat()
		fields.Name = name
		if _, err := svc.Create(ctx, alice, fields); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	list, _ := svc.List(ctx, alice)
	if len(list) != 3 || list[0].Name != "Third" || list[2].Name != "First" {
		t.Fatalf("unexpected order: %v, %v, %v", list[0].Name, list[1].Name, list[2].Name)
	}
}

func TestDelete_Twice(t *testing.T) {
	svc := newTestService(newMemoryRepository(), mirror.Noop{})
	ctx := context.Background()

	created, _ := svc.Create(ctx, alice, mapleFlat())

	if err := svc.Delete(ctx, alice, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertCode(t, svc.Delete(ctx, alice, created.ID), apperrors.CodeNotFound)
}

func TestDelete_MissingID(t *testing.T) {
	svc := newTestService(newMemoryRepository(), mirror.Noop{})
	assertCode(t, svc.Delete(context.Background(), alice, ""), apperrors.CodeInvalidInput)
}

func TestMapleFlatScenario(t *testing.T) {
	rec := &recordingMirror{}
	svc := newTestService(newMemoryRepository(), rec)
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, mapleFlat())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	list, _ := svc.List(ctx, alice)
	if len(list) != 1 || list[0].Status != model.StatusAvailable {
		t.Fatalf("after create: %+v", list)
	}

	if _, err := svc.SetStatus(ctx, alice, created.ID, &model.StatusChange{Status: model.StatusRented}); err != nil {
		t.Fatalf("set status: %v", err)
	}
	list, _ = svc.List(ctx, alice)
	if list[0].Status != model.StatusRented {
		t.Fatalf("after set status: %+v", list[0])
	}

	if err := svc.Delete(ctx, alice, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ = svc.List(ctx, alice)
	if len(list) != 0 {
		t.Fatalf("after delete: %+v", list)
	}
	assertCode(t, svc.Delete(ctx, alice, created.ID), apperrors.CodeNotFound)

	want := []mirror.Event{mirror.EventCreated, mirror.EventStatusChanged, mirror.EventDeleted}
	if len(rec.calls) != len(want) {
		t.Fatalf("mirror calls = %d, want %d", len(rec.calls), len(want))
	}
	for i, ev := range want {
		if rec.calls[i].event != ev {
			t.Errorf("mirror call %d = %s, want %s", i, rec.calls[i].event, ev)
		}
	}
	if rec.calls[2].listing.Name != "Maple Flat" {
		t.Error("delete event must carry the removed listing")
	}
}

type failingDeliverer struct{}

func (failingDeliverer) Deliver(ctx context.Context, payload mirror.Payload) error {
	return &mirror.DeliveryError{Event: payload.Event, Err: errors.New("dial tcp: connection refused")}
}

func TestCreate_SucceedsWhenMirrorFails(t *testing.T) {
	cfg := testConfig()
	dispatcher := mirror.NewDispatcher(failingDeliverer{}, mirror.NewLogDeadLetter(cfg.Log), metrics.Nop{},
		mirror.DispatcherConfig{QueueSize: 4, Workers: 1, Timeout: time.Second}, cfg.Log)
	dispatcher.Start()

	svc := newTestService(newMemoryRepository(), dispatcher)
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, mapleFlat())
	if err != nil {
		t.Fatalf("create must succeed when the mirror fails: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := dispatcher.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	list, err := svc.List(ctx, alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("expected the new listing to be persisted, got %+v", list)
	}
}

func TestStoreFailureIsInternal(t *testing.T) {
	repo := newMemoryRepository()
	repo.failWith = errors.New("server selection error: context deadline exceeded")
	rec := &recordingMirror{}
	svc := newTestService(repo, rec)

	_, err := svc.Create(context.Background(), alice, mapleFlat())
	assertCode(t, err, apperrors.CodeInternal)

	appErr := apperrors.AsAppError(err)
	if appErr.Details["hint"] == nil {
		t.Error("expected a human-readable hint")
	}
	body := appErr.Response()
	if body.Message == "" || body.Message == repo.failWith.Error() {
		t.Errorf("driver error leaked into the response: %q", body.Message)
	}
	if len(rec.calls) != 0 {
		t.Error("failed writes must not be mirrored")
	}
}
