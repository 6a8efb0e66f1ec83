// Package redis implements kvstore.Store on top of redis hashes: one hash
// per partition, message key -> stamp as hash fields.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store is a redis-backed remote log store.
type Store struct {
	client    *redis.Client
	namespace string
}

// Config holds redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Namespace prefixes every partition hash key, e.g. "kvchat:room:".
	Namespace string
}

// New connects to redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	ns := cfg.Namespace
	if ns == "" {
		ns = "kvchat:room:"
	}

	return &Store{client: client, namespace: ns}, nil
}

// Write sets key -> stamp in the partition hash. HSET already has the map
// semantics the contract asks for.
func (s *Store) Write(ctx context.Context, partition, key, stamp string) error {
	if err := s.client.HSet(ctx, s.namespace+partition, key, stamp).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", partition, err)
	}
	return nil
}

// Read returns the full partition hash. A missing hash reads as empty.
func (s *Store) Read(ctx context.Context, partition string) (map[string]string, error) {
	snapshot, err := s.client.HGetAll(ctx, s.namespace+partition).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", partition, err)
	}
	return snapshot, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
