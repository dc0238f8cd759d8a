package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	listingserrors "propdash/internal/listings/errors"
	"propdash/pkg/config"
	mongodb "propdash/pkg/db/mongo"
	"propdash/pkg/model"
)

const CollectionName = "listings"

// ListingRepository persists listings. Every method takes the owner id and
// filters on it, so a caller can never observe or touch another owner's data.
type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	FindByOwner(ctx context.Context, ownerID string) ([]*model.Listing, error)
	FindOwned(ctx context.Context, id, ownerID string) (*model.Listing, error)
	UpdateFields(ctx context.Context, id, ownerID string, fields model.ListingFields, updatedAt time.Time) (*model.Listing, error)
	UpdateStatus(ctx context.Context, id, ownerID string, status model.Status, updatedAt time.Time) (*model.Listing, error)
	Delete(ctx context.Context, id, ownerID string) (*model.Listing, error)
}

type mongoListingRepository struct {
	collection   *mongo.Collection
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewMongoListingRepository(cfg *config.Config) ListingRepository {
	return &mongoListingRepository{
		collection:   cfg.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
}

func (r *mongoListingRepository) Create(ctx context.Context, listing *model.Listing) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	listing.ID = ""
	result, err := r.collection.InsertOne(ctx, listing)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("failed to create listing: unexpected id type %T", result.InsertedID)
	}
	listing.ID = oid.Hex()
	return nil
}

func (r *mongoListingRepository) FindByOwner(ctx context.Context, ownerID string) ([]*model.Listing, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	// _id breaks ties between listings created in the same millisecond.
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := make([]*model.Listing, 0)
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

func (r *mongoListingRepository) FindOwned(ctx context.Context, id, ownerID string) (*model.Listing, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.readTimeout)
	defer cancel()

	filter, err := ownedFilter(id, ownerID)
	if err != nil {
		return nil, err
	}

	var listing model.Listing
	if err := r.collection.FindOne(ctx, filter).Decode(&listing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", listingserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	return &listing, nil
}

func (r *mongoListingRepository) UpdateFields(ctx context.Context, id, ownerID string, fields model.ListingFields, updatedAt time.Time) (*model.Listing, error) {
	update := bson.M{
		"$set": bson.M{
			"name":       fields.Name,
			"price":      fields.Price,
			"rooms":      fields.Rooms,
			"location":   fields.Location,
			"city":       fields.City,
			"utilities":  fields.Utilities,
			"parking":    fields.Parking,
			"pet_policy": fields.PetPolicy,
			"available":  fields.Available,
			"note":       fields.Note,
			"updated_at": updatedAt,
		},
	}
	return r.findOneAndUpdate(ctx, id, ownerID, update)
}

func (r *mongoListingRepository) UpdateStatus(ctx context.Context, id, ownerID string, status model.Status, updatedAt time.Time) (*model.Listing, error) {
	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": updatedAt,
		},
	}
	return r.findOneAndUpdate(ctx, id, ownerID, update)
}

func (r *mongoListingRepository) findOneAndUpdate(ctx context.Context, id, ownerID string, update bson.M) (*model.Listing, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	filter, err := ownedFilter(id, ownerID)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var listing model.Listing
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&listing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", listingserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}
	return &listing, nil
}

// Delete removes the listing and returns what was removed.
func (r *mongoListingRepository) Delete(ctx context.Context, id, ownerID string) (*model.Listing, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	filter, err := ownedFilter(id, ownerID)
	if err != nil {
		return nil, err
	}

	var listing model.Listing
	if err := r.collection.FindOneAndDelete(ctx, filter).Decode(&listing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", listingserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to delete listing: %w", err)
	}
	return &listing, nil
}

func ownedFilter(id, ownerID string) (bson.M, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", listingserrors.ErrInvalidID, id)
	}
	return bson.M{"_id": objectID, "user_id": ownerID}, nil
}
