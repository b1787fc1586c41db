package cache

import (
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/goliatone/go-repository-service/internal/cacheinfra"
)

// SturdycConfig exposes the in-process sturdyc backend settings.
type SturdycConfig struct {
	Capacity           int
	NumShards          int
	MaxTTL             time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultSturdycConfig returns a SturdycConfig populated with sensible defaults.
func DefaultSturdycConfig() SturdycConfig {
	return sturdycFromInternal(cacheinfra.DefaultSturdycConfig())
}

// Validate checks whether the configuration values are valid.
func (c SturdycConfig) Validate() error {
	return c.toInternal().Validate()
}

// NewSturdycBackend constructs an in-process backend on sturdyc.
func NewSturdycBackend(cfg SturdycConfig) (Backend, error) {
	b, err := cacheinfra.NewSturdycBackend(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c SturdycConfig) toInternal() cacheinfra.SturdycConfig {
	return cacheinfra.SturdycConfig{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		MaxTTL:             c.MaxTTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func sturdycFromInternal(cfg cacheinfra.SturdycConfig) SturdycConfig {
	return SturdycConfig{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		MaxTTL:             cfg.MaxTTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}

// RistrettoConfig exposes the in-process ristretto backend settings.
type RistrettoConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// DefaultRistrettoConfig returns a RistrettoConfig populated with sensible defaults.
func DefaultRistrettoConfig() RistrettoConfig {
	cfg := cacheinfra.DefaultRistrettoConfig()
	return RistrettoConfig{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	}
}

// Validate checks whether the configuration values are valid.
func (c RistrettoConfig) Validate() error {
	return c.toInternal().Validate()
}

// NewRistrettoBackend constructs an in-process backend on ristretto.
func NewRistrettoBackend(cfg RistrettoConfig) (Backend, error) {
	b, err := cacheinfra.NewRistrettoBackend(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c RistrettoConfig) toInternal() cacheinfra.RistrettoConfig {
	return cacheinfra.RistrettoConfig{
		NumCounters: c.NumCounters,
		MaxCost:     c.MaxCost,
		BufferItems: c.BufferItems,
		Metrics:     c.Metrics,
	}
}

// RedisConfig wires an existing go-redis client. Set CloseClient only when
// the backend exclusively owns the client.
type RedisConfig struct {
	Client      goredis.UniversalClient
	CloseClient bool
}

// NewRedisBackend constructs a backend on a redis server.
func NewRedisBackend(cfg RedisConfig) (Backend, error) {
	b, err := cacheinfra.NewRedisBackend(cacheinfra.RedisConfig{
		Client:      cfg.Client,
		CloseClient: cfg.CloseClient,
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}
