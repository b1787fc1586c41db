package cacheinfra

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/viccon/sturdyc"
)

// SturdycConfig holds the configuration for the sturdyc backed store.
type SturdycConfig struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0. Default: 256
	NumShards int

	// MaxTTL is the upper bound on how long sturdyc keeps any entry. Per key
	// expiry passed to Set is enforced on top of it and must not exceed it.
	// Must be greater than 0.
	MaxTTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	// Default: 10 (evict 10% of entries)
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// DefaultSturdycConfig returns a SturdycConfig with sensible defaults for most use cases.
func DefaultSturdycConfig() SturdycConfig {
	return SturdycConfig{
		Capacity:           10000,
		NumShards:          256,
		MaxTTL:             24 * time.Hour,
		EvictionPercentage: 10,
		EvictionInterval:   0, // Use default
	}
}

// ToSturdycOptions converts the config to sturdyc options. Capacity,
// NumShards, MaxTTL and EvictionPercentage are passed directly to sturdyc.New.
func (c SturdycConfig) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c SturdycConfig) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.MaxTTL <= 0 {
		return &ConfigError{Field: "MaxTTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// sturdycEntry pairs a value with its own deadline. sturdyc only supports a
// client wide TTL, so per key expiry is tracked here.
type sturdycEntry struct {
	value     string
	expiresAt time.Time // zero => bounded only by MaxTTL
}

func (e sturdycEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// SturdycBackend is an in-process key/value store on top of a sturdyc client.
type SturdycBackend struct {
	client *sturdyc.Client[sturdycEntry]
	mu     sync.Mutex // serialises read-modify-write operations
	now    func() time.Time
}

// NewSturdycBackend validates the configuration and initializes a sturdyc
// client with the provided settings.
func NewSturdycBackend(cfg SturdycConfig) (*SturdycBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[sturdycEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.MaxTTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycBackend{client: client, now: time.Now}, nil
}

// load must be called with mu held.
func (s *SturdycBackend) load(key string) (sturdycEntry, bool) {
	e, ok := s.client.Get(key)
	if !ok {
		return sturdycEntry{}, false
	}
	if e.expired(s.now()) {
		s.client.Delete(key)
		return sturdycEntry{}, false
	}
	return e, true
}

// Get returns the value stored under key. It takes the write lock because
// load drops expired entries.
func (s *SturdycBackend) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.load(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value under key using mode to resolve expiry.
func (s *SturdycBackend) Set(_ context.Context, key, value string, mode SetMode, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := sturdycEntry{value: value}
	if mode == ModeKeepTTL {
		if prev, ok := s.load(key); ok {
			entry.expiresAt = prev.expiresAt
		}
	} else if d := expiryFor(mode, ttl); d > 0 {
		entry.expiresAt = s.now().Add(d)
	}

	s.client.Set(key, entry)
	return nil
}

// Del removes key and reports how many keys were removed.
func (s *SturdycBackend) Del(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.load(key); !ok {
		return 0, nil
	}
	s.client.Delete(key)
	return 1, nil
}

// Expire resets the expiry of an existing key.
func (s *SturdycBackend) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.load(key)
	if !ok {
		return false, nil
	}
	if ttl <= 0 {
		s.client.Delete(key)
		return true, nil
	}
	e.expiresAt = s.now().Add(ttl)
	s.client.Set(key, e)
	return true, nil
}

// IncrBy adds n to the integer stored under key, keeping its expiry.
func (s *SturdycBackend) IncrBy(_ context.Context, key string, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _ := s.load(key)
	current, err := parseCounter(e.value)
	if err != nil {
		return 0, err
	}
	current += n
	e.value = strconv.FormatInt(current, 10)
	s.client.Set(key, e)
	return current, nil
}

// DecrBy subtracts n from the integer stored under key.
func (s *SturdycBackend) DecrBy(ctx context.Context, key string, n int64) (int64, error) {
	return s.IncrBy(ctx, key, -n)
}

// Size returns the number of entries held by the sturdyc client, including
// entries whose per key deadline has passed but were not read since.
func (s *SturdycBackend) Size() int {
	return s.client.Size()
}

// Close is a no-op. sturdyc has no resources to release.
func (s *SturdycBackend) Close(context.Context) error {
	return nil
}

func parseCounter(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ConfigError{Field: "value", Message: "is not an integer"}
	}
	return n, nil
}
