package service

import (
	"context"
	"errors"
	"time"

	listingserrors "propdash/internal/listings/errors"
	"propdash/internal/listings/repository"
	"propdash/internal/listings/validator"
	"propdash/internal/metrics"
	"propdash/internal/mirror"
	"propdash/pkg/config"
	apperrors "propdash/pkg/errors"
	"propdash/pkg/model"
	"propdash/pkg/sanitizer"
)

const (
	msgFieldsRequired = "All fields except Note are required"
	msgInvalidStatus  = "Status must be either 'Available' or 'Rented'"
	msgStoreHint      = "The listing store could not be reached. Please try again in a moment."

	opCreate    = "create"
	opUpdate    = "update"
	opSetStatus = "set_status"
	opDelete    = "delete"
)

// ListingService is the owner-scoped listing API. Every committed write is
// handed to the mirror afterwards; the mirror's outcome never changes the
// result returned here.
type ListingService interface {
	Create(ctx context.Context, owner model.Identity, fields *model.ListingFields) (*model.Listing, error)
	List(ctx context.Context, owner model.Identity) ([]*model.Listing, error)
	Get(ctx context.Context, owner model.Identity, id string) (*model.Listing, error)
	Update(ctx context.Context, owner model.Identity, id string, fields *model.ListingFields) (*model.Listing, error)
	SetStatus(ctx context.Context, owner model.Identity, id string, change *model.StatusChange) (*model.Listing, error)
	Delete(ctx context.Context, owner model.Identity, id string) error
}

type listingService struct {
	repo      repository.ListingRepository
	validator *validator.ListingValidator
	mirror    mirror.Mirror
	metrics   metrics.Recorder
	cfg       *config.Config
	now       func() time.Time
}

func NewListingService(
	repo repository.ListingRepository,
	validator *validator.ListingValidator,
	mirror mirror.Mirror,
	rec metrics.Recorder,
	cfg *config.Config,
) ListingService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &listingService{
		repo:      repo,
		validator: validator,
		mirror:    mirror,
		metrics:   rec,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *listingService) Create(ctx context.Context, owner model.Identity, fields *model.ListingFields) (*model.Listing, error) {
	if owner.IsZero() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	clean, err := s.validateFields(fields)
	if err != nil {
		s.metrics.RecordListingMutation(opCreate, metrics.OutcomeValidation)
		return nil, err
	}

	now := s.timestamp()
	listing := &model.Listing{
		UserID:    owner.ID,
		Status:    model.StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	listing.Apply(clean)

	if err := s.repo.Create(ctx, listing); err != nil {
		s.metrics.RecordListingMutation(opCreate, metrics.OutcomeError)
		return nil, s.storeError("Failed to create listing", owner, "", err)
	}

	s.metrics.RecordListingMutation(opCreate, metrics.OutcomeOK)
	s.cfg.Log.Info("Listing created",
		"id", listing.ID,
		"owner", owner.ID,
		"name", listing.Name,
	)
	s.mirror.Mirror(ctx, mirror.EventCreated, *listing)
	return listing, nil
}

func (s *listingService) List(ctx context.Context, owner model.Identity) ([]*model.Listing, error) {
	if owner.IsZero() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	listings, err := s.repo.FindByOwner(ctx, owner.ID)
	if err != nil {
		return nil, s.storeError("Failed to load listings", owner, "", err)
	}
	return listings, nil
}

func (s *listingService) Get(ctx context.Context, owner model.Identity, id string) (*model.Listing, error) {
	if owner.IsZero() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Listing ID is required")
	}
	listing, err := s.repo.FindOwned(ctx, id, owner.ID)
	if err != nil {
		return nil, s.lookupError("Failed to load listing", owner, id, err)
	}
	return listing, nil
}

func (s *listingService) Update(ctx context.Context, owner model.Identity, id string, fields *model.ListingFields) (*model.Listing, error) {
	if owner.IsZero() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Listing ID is required")
	}
	clean, err := s.validateFields(fields)
	if err != nil {
		s.metrics.RecordListingMutation(opUpdate, metrics.OutcomeValidation)
		return nil, err
	}

	existing, err := s.repo.FindOwned(ctx, id, owner.ID)
	if err != nil {
		return nil, s.mutationError(opUpdate, "Failed to update listing", owner, id, err)
	}

	updated, err := s.repo.UpdateFields(ctx, id, owner.ID, clean, s.nextUpdatedAt(existing))
	if err != nil {
		return nil, s.mutationError(opUpdate, "Failed to update listing", owner, id, err)
	}

	s.metrics.RecordListingMutation(opUpdate, metrics.OutcomeOK)
	s.cfg.Log.Info("Listing updated", "id", id, "owner", owner.ID)
	s.mirror.Mirror(ctx, mirror.EventUpdated, *updated)
	return updated, nil
}

func (s *listingService) SetStatus(ctx context.Context, owner model.Identity, id string, change *model.StatusChange) (*model.Listing, error) {
	if owner.IsZero() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Listing ID is required")
	}
	if change == nil {
		change = &model.StatusChange{}
	}
	change.Status = sanitizer.NormalizeStatus(change.Status)
	if err := s.validator.ValidateStatus(change); err != nil {
		s.metrics.RecordListingMutation(opSetStatus, metrics.OutcomeValidation)
		s.cfg.Log.Warn("Listing status rejected", "id", id, "owner", owner.ID, "status", change.Status)
		return nil, validationError(msgInvalidStatus, err)
	}

	existing, err := s.repo.FindOwned(ctx, id, owner.ID)
	if err != nil {
		return nil, s.mutationError(opSetStatus, "Failed to update listing status", owner, id, err)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, owner.ID, change.Status, s.nextUpdatedAt(existing))
	if err != nil {
		return nil, s.mutationError(opSetStatus, "Failed to update listing status", owner, id, err)
	}

	s.metrics.RecordListingMutation(opSetStatus, metrics.OutcomeOK)
	s.cfg.Log.Info("Listing status changed",
		"id", id,
		"owner", owner.ID,
		"from", existing.Status,
		"to", updated.Status,
	)
	s.mirror.Mirror(ctx, mirror.EventStatusChanged, *updated)
	return updated, nil
}

func (s *listingService) Delete(ctx context.Context, owner model.Identity, id string) error {
	if owner.IsZero() {
		return apperrors.Unauthorized("Authentication required")
	}
	if id == "" {
		s.metrics.RecordListingMutation(opDelete, metrics.OutcomeValidation)
		return apperrors.InvalidInput("Listing ID is required")
	}

	deleted, err := s.repo.Delete(ctx, id, owner.ID)
	if err != nil {
		return s.mutationError(opDelete, "Failed to delete listing", owner, id, err)
	}

	s.metrics.RecordListingMutation(opDelete, metrics.OutcomeOK)
	s.cfg.Log.Info("Listing deleted", "id", id, "owner", owner.ID)
	s.mirror.Mirror(ctx, mirror.EventDeleted, *deleted)
	return nil
}

func (s *listingService) validateFields(fields *model.ListingFields) (model.ListingFields, error) {
	if fields == nil {
		fields = &model.ListingFields{}
	}
	clean := sanitizer.NormalizeListingFields(*fields)
	if err := s.validator.ValidateFields(&clean); err != nil {
		s.cfg.Log.Warn("Listing validation failed", "name", clean.Name, "error", err)
		return clean, validationError(msgFieldsRequired, err)
	}
	return clean, nil
}

func validationError(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, map[string]any{
			"fields": verrs.Fields(),
			"errors": verrs,
		})
	}
	return apperrors.Validation(message, nil)
}

// timestamp is truncated to the datastore's millisecond precision so the
// value returned to the caller equals what a later read returns.
func (s *listingService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// nextUpdatedAt always advances past the stored value, even when two writes
// land within the same millisecond.
func (s *listingService) nextUpdatedAt(existing *model.Listing) time.Time {
	now := s.timestamp()
	if !now.After(existing.UpdatedAt) {
		now = existing.UpdatedAt.Add(time.Millisecond)
	}
	return now
}

func (s *listingService) mutationError(op, message string, owner model.Identity, id string, err error) error {
	if isNotFound(err) {
		s.metrics.RecordListingMutation(op, metrics.OutcomeNotFound)
	} else {
		s.metrics.RecordListingMutation(op, metrics.OutcomeError)
	}
	return s.lookupError(message, owner, id, err)
}

// lookupError maps a repository failure on a single listing. A malformed id,
// a missing listing and someone else's listing all produce the same 404.
func (s *listingService) lookupError(message string, owner model.Identity, id string, err error) error {
	if isNotFound(err) {
		s.cfg.Log.Debug("Listing not found for owner", "id", id, "owner", owner.ID)
		return apperrors.NotFoundWithID("Listing", id)
	}
	return s.storeError(message, owner, id, err)
}

func (s *listingService) storeError(message string, owner model.Identity, id string, err error) error {
	s.cfg.Log.Error(message,
		"id", id,
		"owner", owner.ID,
		"error", err,
	)
	return apperrors.Internal(message, err).WithDetails(map[string]any{
		"hint": msgStoreHint,
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, listingserrors.ErrNotFound) || errors.Is(err, listingserrors.ErrInvalidID)
}
