package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-service/internal/cacheinfra"
)

// SetMode selects how Backend.Set applies expiry.
type SetMode = cacheinfra.SetMode

const (
	// ModeEX sets a ttl in whole seconds.
	ModeEX = cacheinfra.ModeEX
	// ModePX sets a ttl in milliseconds.
	ModePX = cacheinfra.ModePX
	// ModeKeepTTL retains the existing ttl of the key.
	ModeKeepTTL = cacheinfra.ModeKeepTTL
)

// Backend is the key/value store the service caches into. Values are opaque
// strings. A non-positive ttl means the key does not expire.
//
// The service itself only calls Get, Set with ModeEX and Del. The remaining
// methods are part of the contract so a single adapter can serve other
// callers sharing the same store.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, mode SetMode, ttl time.Duration) error
	Del(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IncrBy(ctx context.Context, key string, n int64) (int64, error)
	DecrBy(ctx context.Context, key string, n int64) (int64, error)
}

// Closer is implemented by backends holding resources.
type Closer interface {
	Close(ctx context.Context) error
}
