package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces counter keys. Defaults to "flowminds:quota".
	Prefix string
}

// RedisStore keeps counters in Redis so several server instances share one
// allowance per client. Keys expire at the next UTC midnight.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "flowminds:quota"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(client, day string) string {
	return s.prefix + ":" + day + ":" + client
}

func (s *RedisStore) Incr(ctx context.Context, client, day string, expires time.Time) (int, error) {
	k := s.key(client, day)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireAt(ctx, k, expires)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incrementing %s: %w", k, err)
	}
	return int(incr.Val()), nil
}

func (s *RedisStore) Count(ctx context.Context, client, day string) (int, error) {
	n, err := s.client.Get(ctx, s.key(client, day)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading usage: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
