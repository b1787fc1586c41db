package cacheinfra

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNilClient is returned when a redis backend is built without a client.
var ErrNilClient = errors.New("cacheinfra: nil redis client")

// RedisConfig wires an existing redis client into a backend.
type RedisConfig struct {
	Client goredis.UniversalClient
	// CloseClient is set only if this backend exclusively owns the client.
	CloseClient bool
}

// RedisBackend maps the backend contract onto redis commands.
type RedisBackend struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

// NewRedisBackend returns a backend using cfg.Client.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &RedisBackend{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

// Get returns the value stored under key.
func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set issues SET with EX, PX or KEEPTTL.
func (r *RedisBackend) Set(ctx context.Context, key, value string, mode SetMode, ttl time.Duration) error {
	args := goredis.SetArgs{}
	if mode == ModeKeepTTL {
		args.KeepTTL = true
	} else {
		args.TTL = expiryFor(mode, ttl)
	}
	return r.rdb.SetArgs(ctx, key, value, args).Err()
}

// Del removes key and reports how many keys were removed.
func (r *RedisBackend) Del(ctx context.Context, key string) (int64, error) {
	return r.rdb.Del(ctx, key).Result()
}

// Expire resets the expiry of an existing key.
func (r *RedisBackend) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		n, err := r.rdb.Del(ctx, key).Result()
		return n > 0, err
	}
	return r.rdb.Expire(ctx, key, ttl).Result()
}

// IncrBy adds n to the integer stored under key.
func (r *RedisBackend) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	return r.rdb.IncrBy(ctx, key, n).Result()
}

// DecrBy subtracts n from the integer stored under key.
func (r *RedisBackend) DecrBy(ctx context.Context, key string, n int64) (int64, error) {
	return r.rdb.DecrBy(ctx, key, n).Result()
}

// Close releases the underlying client only when this backend owns it.
// Safe to call multiple times.
func (r *RedisBackend) Close(context.Context) error {
	if r.closeClient {
		if err := r.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
