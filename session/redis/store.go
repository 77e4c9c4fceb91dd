// Package redis provides a Redis-backed session store for deployments where
// sandboxed sessions must survive process restarts or span instances.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	till "github.com/xraph/till"
	"github.com/xraph/till/session"
)

// compile-time interface check
var _ session.Store = (*Store)(nil)

// DefaultTTL applies when Put is called with a zero ttl.
const DefaultTTL = 30 * time.Minute

// Store keeps session entries in Redis under a shared key namespace.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps an existing Redis client.
func New(client *redis.Client) *Store {
	return &Store{client: client, ttl: DefaultTTL}
}

// Open connects to Redis at addr and verifies the connection.
func Open(ctx context.Context, addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("till/redis: ping: %w", err)
	}
	return New(client), nil
}

func (s *Store) Put(ctx context.Context, sessionID, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.client.Set(ctx, redisKey(sessionID, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("till/redis: set: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, redisKey(sessionID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, till.ErrSessionMiss
	}
	if err != nil {
		return nil, fmt.Errorf("till/redis: get: %w", err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, sessionID, key string) error {
	if err := s.client.Del(ctx, redisKey(sessionID, key)).Err(); err != nil {
		return fmt.Errorf("till/redis: delete: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func redisKey(sessionID, key string) string {
	return fmt.Sprintf("till:session:%s:%s", sessionID, key)
}
