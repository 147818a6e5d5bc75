// Package dedup suppresses redelivered trigger events by event ID. The Redis
// store shares suppression state between API instances; the memory store
// serves tests and single-process development.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long an event ID stays suppressed.
const DefaultTTL = 24 * time.Hour

// Store records event IDs within a TTL window. Checking and recording are
// separate so an ID is only burned once its trigger actually committed.
type Store interface {
	// Seen reports whether the event ID was already recorded.
	Seen(ctx context.Context, eventID string) (bool, error)
	// Mark records the event ID for the TTL window.
	Mark(ctx context.Context, eventID string) error
}

// RedisStore is a Redis-backed Store using SET NX.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store from a connection URL.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisStore{
		client: redis.NewClient(opts),
		prefix: "propgen:trigger:",
		ttl:    ttl,
	}, nil
}

func (s *RedisStore) Seen(ctx context.Context, eventID string) (bool, error) {
	count, err := s.client.Exists(ctx, s.prefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check event ID: %w", err)
	}

	return count > 0, nil
}

func (s *RedisStore) Mark(ctx context.Context, eventID string) error {
	if err := s.client.SetNX(ctx, s.prefix+eventID, 1, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record event ID: %w", err)
	}

	return nil
}

// Close releases the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

// NewMemoryStore creates an in-process store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &MemoryStore{
		ttl:  ttl,
		seen: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Seen(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	for id, expiry := range s.seen {
		if expiry.Before(now) {
			delete(s.seen, id)
		}
	}

	_, ok := s.seen[eventID]

	return ok, nil
}

func (s *MemoryStore) Mark(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen[eventID] = time.Now().Add(s.ttl)

	return nil
}
