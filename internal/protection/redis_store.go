package protection

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisWindowStore keeps per-IP request timestamps in a redis sorted set
// scored by unix nanoseconds. Counters survive process restarts and are
// shared across service instances.
type RedisWindowStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisWindowStore creates a window store backed by the given redis client.
func NewRedisWindowStore(rdb *redis.Client, prefix string) *RedisWindowStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisWindowStore{rdb: rdb, prefix: prefix}
}

func (s *RedisWindowStore) key(ip string) string {
	return s.prefix + ip
}

// Counts prunes entries older than one hour and counts the trailing windows
// in a single pipeline round trip.
func (s *RedisWindowStore) Counts(ctx context.Context, ip string, now time.Time) (WindowCounts, error) {
	key := s.key(ip)
	hourCutoff := strconv.FormatInt(now.Add(-time.Hour).UnixNano(), 10)
	minuteCutoff := strconv.FormatInt(now.Add(-time.Minute).UnixNano(), 10)
	burstCutoff := strconv.FormatInt(now.Add(-burstWindow).UnixNano(), 10)

	pipe := s.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", hourCutoff)
	hour := pipe.ZCard(ctx, key)
	minute := pipe.ZCount(ctx, key, "("+minuteCutoff, "+inf")
	burst := pipe.ZCount(ctx, key, "("+burstCutoff, "+inf")
	if _, err := pipe.Exec(ctx); err != nil {
		return WindowCounts{}, fmt.Errorf("redis window counts: %w", err)
	}

	return WindowCounts{
		Burst:  int(burst.Val()),
		Minute: int(minute.Val()),
		Hour:   int(hour.Val()),
	}, nil
}

// Record appends the current request timestamp. The member carries a uuid so
// two requests landing on the same nanosecond stay distinct.
func (s *RedisWindowStore) Record(ctx context.Context, ip string, now time.Time) error {
	key := s.key(ip)
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()

	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, time.Hour+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis window record: %w", err)
	}
	return nil
}
