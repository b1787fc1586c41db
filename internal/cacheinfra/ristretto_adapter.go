package cacheinfra

import (
	"context"
	"strconv"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"
)

// RistrettoConfig holds the configuration for the ristretto backed store.
type RistrettoConfig struct {
	// NumCounters is the number of keys tracked for admission frequency.
	// Roughly 10x the expected number of live entries.
	NumCounters int64
	// MaxCost is the total cost budget. Every entry costs 1, so this is the
	// maximum number of entries.
	MaxCost int64
	// BufferItems is the size of the Get buffers. 64 is the recommended value.
	BufferItems int64
	// Metrics turns on ristretto's internal hit/miss counters.
	Metrics bool
}

// DefaultRistrettoConfig returns a RistrettoConfig sized for around 10k entries.
func DefaultRistrettoConfig() RistrettoConfig {
	return RistrettoConfig{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	}
}

// Validate checks if the configuration values are valid.
func (c RistrettoConfig) Validate() error {
	if c.NumCounters <= 0 {
		return &ConfigError{Field: "NumCounters", Message: "must be greater than 0"}
	}
	if c.MaxCost <= 0 {
		return &ConfigError{Field: "MaxCost", Message: "must be greater than 0"}
	}
	if c.BufferItems <= 0 {
		return &ConfigError{Field: "BufferItems", Message: "must be greater than 0"}
	}
	return nil
}

// RistrettoBackend is an in-process key/value store on top of ristretto.
// Writes are admitted synchronously so a Get that follows a Set sees it.
type RistrettoBackend struct {
	c  *rc.Cache
	mu sync.Mutex
}

// NewRistrettoBackend validates cfg and builds the ristretto cache.
func NewRistrettoBackend(cfg RistrettoConfig) (*RistrettoBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters:        cfg.NumCounters,
		MaxCost:            cfg.MaxCost,
		BufferItems:        cfg.BufferItems,
		Metrics:            cfg.Metrics,
		IgnoreInternalCost: true, // cost counts entries, not bytes
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoBackend{c: c}, nil
}

func (r *RistrettoBackend) get(key string) (string, bool) {
	v, ok := r.c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		// drop unexpected entry shape
		r.c.Del(key)
		return "", false
	}
	return s, true
}

func (r *RistrettoBackend) put(key, value string, ttl time.Duration) error {
	if !r.c.SetWithTTL(key, value, 1, ttl) {
		return ErrSetRejected
	}
	r.c.Wait()
	return nil
}

// Get returns the value stored under key.
func (r *RistrettoBackend) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := r.get(key)
	return v, ok, nil
}

// Set stores value under key using mode to resolve expiry.
func (r *RistrettoBackend) Set(_ context.Context, key, value string, mode SetMode, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if mode == ModeKeepTTL {
		var keep time.Duration
		if remaining, ok := r.c.GetTTL(key); ok {
			keep = remaining
		}
		return r.put(key, value, keep)
	}
	return r.put(key, value, expiryFor(mode, ttl))
}

// Del removes key and reports how many keys were removed.
func (r *RistrettoBackend) Del(_ context.Context, key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.get(key)
	r.c.Del(key)
	r.c.Wait()
	if !ok {
		return 0, nil
	}
	return 1, nil
}

// Expire resets the expiry of an existing key.
func (r *RistrettoBackend) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.get(key)
	if !ok {
		return false, nil
	}
	if ttl <= 0 {
		r.c.Del(key)
		r.c.Wait()
		return true, nil
	}
	return true, r.put(key, v, ttl)
}

// IncrBy adds n to the integer stored under key, keeping its expiry.
func (r *RistrettoBackend) IncrBy(_ context.Context, key string, n int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, _ := r.get(key)
	current, err := parseCounter(raw)
	if err != nil {
		return 0, err
	}
	current += n

	var keep time.Duration
	if remaining, ok := r.c.GetTTL(key); ok {
		keep = remaining
	}
	if err := r.put(key, strconv.FormatInt(current, 10), keep); err != nil {
		return 0, err
	}
	return current, nil
}

// DecrBy subtracts n from the integer stored under key.
func (r *RistrettoBackend) DecrBy(ctx context.Context, key string, n int64) (int64, error) {
	return r.IncrBy(ctx, key, -n)
}

// Metrics exposes ristretto's counters. Nil unless RistrettoConfig.Metrics is set.
func (r *RistrettoBackend) Metrics() *rc.Metrics { return r.c.Metrics }

// Close flushes pending writes and stops ristretto's goroutines.
func (r *RistrettoBackend) Close(context.Context) error {
	r.c.Wait()
	r.c.Close()
	return nil
}
