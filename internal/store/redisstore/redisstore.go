package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/idilsaglam/todomvc/internal/model"
)

// Store keeps the list as one JSON document under a key, with a revision
// counter bumped on every save.
type Store struct {
	client *backend.Client
	key    string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration of the stored list. Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithKey sets the key holding the list.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		key:    "todo:items",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) revisionKey() string { return s.key + ":rev" }

// Load retrieves the list. A missing key is an empty list.
func (s *Store) Load(ctx context.Context) ([]model.Item, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return []model.Item{}, nil
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	items := []model.Item{}
	if err := json.Unmarshal([]byte(val), &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	return items, nil
}

// Save persists the list and bumps the revision in one pipeline.
func (s *Store) Save(ctx context.Context, items []model.Item) error {
	if items == nil {
		items = []model.Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key, data, s.ttl)
	pipe.Incr(ctx, s.revisionKey())
	if s.ttl > 0 {
		pipe.Expire(ctx, s.revisionKey(), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Revision returns how many times the list has been saved.
func (s *Store) Revision(ctx context.Context) (int64, error) {
	n, err := s.client.Get(ctx, s.revisionKey()).Int64()
	if errors.Is(err, backend.Nil) {
		return 0, nil
	}
	return n, err
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
