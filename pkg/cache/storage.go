package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"propdash/pkg/model"
)

// SlotName is the fixed storage slot holding the serialized listing array.
const SlotName = "apartments_cache"

// Storage persists the cached listing set. Load returns nil, nil for an empty slot.
type Storage interface {
	Load(ctx context.Context) ([]model.Listing, error)
	Save(ctx context.Context, listings []model.Listing) error
}

// FileStorage keeps the slot in a JSON file.
type FileStorage struct {
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// DefaultCachePath is $HOME/.propdash/apartments_cache.json.
func DefaultCachePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".propdash", SlotName+".json"), nil
}

func (s *FileStorage) Load(_ context.Context) ([]model.Listing, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var listings []model.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode cache file %s: %w", s.path, err)
	}
	return listings, nil
}

// Save writes to a temporary file and renames it so a crash never leaves a
// truncated slot behind.
func (s *FileStorage) Save(_ context.Context, listings []model.Listing) error {
	data, err := encode(listings)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), SlotName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// RedisStorage keeps the slot under a single Redis key, for clients that
// share a cache across machines.
type RedisStorage struct {
	client *redis.Client
	key    string
}

func NewRedisStorage(client *redis.Client, namespace string) *RedisStorage {
	key := SlotName
	if namespace != "" {
		key = namespace + ":" + SlotName
	}
	return &RedisStorage{client: client, key: key}
}

func (s *RedisStorage) Key() string {
	return s.key
}

func (s *RedisStorage) Load(ctx context.Context) ([]model.Listing, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache slot: %w", err)
	}
	var listings []model.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode cache slot: %w", err)
	}
	return listings, nil
}

func (s *RedisStorage) Save(ctx context.Context, listings []model.Listing) error {
	data, err := encode(listings)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cache slot: %w", err)
	}
	return nil
}

func encode(listings []model.Listing) ([]byte, error) {
	if listings == nil {
		listings = []model.Listing{}
	}
	data, err := json.Marshal(listings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache: %w", err)
	}
	return data, nil
}
