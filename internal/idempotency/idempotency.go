// Package idempotency remembers which order a checkout Idempotency-Key
// produced, so a retried request is answered with the same order.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	Header = "Idempotency-Key"

	DefaultTTL = 24 * time.Hour

	// PendingTTL bounds how long an unfinished checkout holds its key.
	PendingTTL = 30 * time.Second

	pending = "pending"
)

func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		client: client,
		prefix: "cartsaga:checkout",
		ttl:    ttl,
	}
}

// Open connects to the Redis instance at url and checks it answers.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("client.Ping: %w", err)
	}

	return client, nil
}

func (s *Store) key(k string) string {
	return s.prefix + ":" + k
}

func (s *Store) Reserve(ctx context.Context, key string) (int64, bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), pending, PendingTTL).Result()
	if err != nil {
		return 0, false, fmt.Errorf("client.SetNX: %w", err)
	}
	if ok {
		return 0, true, nil
	}

	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls; let the caller try again
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("client.Get: %w", err)
	}
	if val == pending {
		return 0, false, nil
	}

	orderID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("stored order id %q: %w", val, err)
	}

	return orderID, false, nil
}

func (s *Store) Complete(ctx context.Context, key string, orderID int64) error {
	if err := s.client.Set(ctx, s.key(key), strconv.FormatInt(orderID, 10), s.ttl).Err(); err != nil {
		return fmt.Errorf("client.Set: %w", err)
	}
	return nil
}

func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("client.Del: %w", err)
	}
	return nil
}
