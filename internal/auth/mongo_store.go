package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongodb "propdash/pkg/db/mongo"
	"propdash/pkg/sanitizer"
)

const UsersCollection = "users"

// MongoCredentialStore reads credentials from the users collection, keyed by
// the lower-cased username.
type MongoCredentialStore struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func NewMongoCredentialStore(db *mongo.Database, timeout time.Duration) *MongoCredentialStore {
	return &MongoCredentialStore{
		collection: db.Collection(UsersCollection),
		timeout:    timeout,
	}
}

func (s *MongoCredentialStore) FindByUsername(ctx context.Context, username string) (*Credential, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, s.timeout)
	defer cancel()

	var cred Credential
	err := s.collection.FindOne(ctx, bson.M{"username_lower": sanitizer.NormalizeUsername(username)}).Decode(&cred)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &cred, nil
}

func (s *MongoCredentialStore) VerifyPassword(cred *Credential, password string) bool {
	return checkPassword(cred.PasswordHash, password)
}

// Upsert creates or replaces the credential for cred.Username.
func (s *MongoCredentialStore) Upsert(ctx context.Context, cred *Credential) error {
	ctx, cancel := mongodb.WithTimeout(ctx, s.timeout)
	defer cancel()

	cred.UsernameKey = sanitizer.NormalizeUsername(cred.Username)
	filter := bson.M{"username_lower": cred.UsernameKey}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, filter, cred, opts); err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", cred.Username, err)
	}
	return nil
}
