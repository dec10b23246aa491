package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis is the shared-cache variant. Misses and transport errors are treated
// the same; callers always fall back to the source query.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(cfg RedisConfig) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Redis{rdb: rdb, ttl: ttl}
}

// Ping checks redis connectivity at startup.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.rdb.Get(ctx, key).Bytes()

	if err != nil {
		return nil, false
	}

	return val, true
}

func (r *Redis) Set(ctx context.Context, key string, val []byte) {
	// best effort; a failed write just means the next read misses
	_ = r.rdb.Set(ctx, key, val, r.ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	_ = r.rdb.Del(ctx, keys...).Err()
}
