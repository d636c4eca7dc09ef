package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the sliding window with a Redis sorted set per key,
// scored by the call's Unix-nanosecond timestamp, so the coordinator's
// per-source quota is shared across every replica of the scraper.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a RedisStore. prefix namespaces the sorted-set keys
// (e.g. "newsspark:ratelimit:") so they don't collide with other callers
// of the same Redis instance.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Timestamps(ctx context.Context, key string, cutoff time.Time) ([]time.Time, error) {
	rk := s.redisKey(key)
	if err := s.client.ZRemRangeByScore(ctx, rk, "-inf", strconv.FormatInt(cutoff.UnixNano(), 10)).Err(); err != nil {
		return nil, fmt.Errorf("ratelimit redis: prune %q: %w", rk, err)
	}
	members, err := s.client.ZRangeByScore(ctx, rk, &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff.UnixNano()+1, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("ratelimit redis: range %q: %w", rk, err)
	}

	out := make([]time.Time, 0, len(members))
	for _, m := range members {
		ns, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, time.Unix(0, ns))
	}
	return out, nil
}

func (s *RedisStore) Record(ctx context.Context, key string, at time.Time, cutoff time.Time) error {
	rk := s.redisKey(key)
	score := float64(at.UnixNano())
	member := strconv.FormatInt(at.UnixNano(), 10)

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, rk, redis.Z{Score: score, Member: member})
	pipe.ZRemRangeByScore(ctx, rk, "-inf", strconv.FormatInt(cutoff.UnixNano(), 10))
	pipe.Expire(ctx, rk, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ratelimit redis: record %q: %w", rk, err)
	}
	return nil
}
