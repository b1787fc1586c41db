package di

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	errs "github.com/jmgilman/go/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/goliatone/go-repository-service/cache"
	"github.com/goliatone/go-repository-service/entity"
	"github.com/goliatone/go-repository-service/service"
	"github.com/goliatone/go-repository-service/store"
)

// BackendKind selects the cache backend a Container builds.
type BackendKind string

const (
	BackendSturdyc   BackendKind = "sturdyc"
	BackendRistretto BackendKind = "ristretto"
	BackendRedis     BackendKind = "redis"
	// BackendNone builds services without a cache.
	BackendNone BackendKind = "none"
)

// RedisConfig describes the redis server the container connects to.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config gathers everything a Container needs.
type Config struct {
	Cache     cache.Config
	Backend   BackendKind
	Sturdyc   cache.SturdycConfig
	Ristretto cache.RistrettoConfig
	Redis     RedisConfig
}

// DefaultConfig uses an in-process sturdyc backend.
func DefaultConfig() Config {
	return Config{
		Cache:     cache.DefaultConfig(),
		Backend:   BackendSturdyc,
		Sturdyc:   cache.DefaultSturdycConfig(),
		Ristretto: cache.DefaultRistrettoConfig(),
		Redis:     RedisConfig{Addr: "localhost:6379"},
	}
}

// Validate checks the backend selection and the settings it depends on.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(BackendSturdyc, BackendRistretto, BackendRedis, BackendNone)),
	)
	if err == nil && c.Backend == BackendRedis {
		err = validation.Validate(c.Redis.Addr, validation.Required.Error("redis address is required"))
	}
	if err != nil {
		return errs.Wrap(err, errs.CodeInvalidConfig, "invalid container config")
	}
	return c.Cache.WithDefaults().Validate()
}

// Option customises a Container.
type Option func(*Container)

// WithLogger sets the logger handed to every service.
func WithLogger(logger cache.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHooks sets the cache hooks handed to every service.
func WithHooks(hooks cache.Hooks) Option {
	return func(c *Container) {
		if hooks != nil {
			c.hooks = hooks
		}
	}
}

// WithRedisClient uses client instead of dialing Config.Redis. The
// container does not close a client it was given.
func WithRedisClient(client goredis.UniversalClient) Option {
	return func(c *Container) { c.redis = client }
}

// Container owns one cache backend and hands it, with the shared logger,
// hooks and cache config, to every service built from it.
type Container struct {
	backend cache.Backend
	logger  cache.Logger
	hooks   cache.Hooks
	redis   goredis.UniversalClient
	config  Config
}

// NewContainer validates config and builds the selected backend.
func NewContainer(config Config, opts ...Option) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		logger: cache.NopLogger{},
		hooks:  cache.NopHooks{},
		config: config,
	}
	for _, opt := range opts {
		opt(c)
	}

	backend, err := c.buildBackend()
	if err != nil {
		return nil, err
	}
	c.backend = backend

	c.logger.Info("cache backend ready", cache.Fields{"backend": string(config.Backend)})
	return c, nil
}

// NewContainerWithDefaults builds a container from DefaultConfig.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(DefaultConfig(), opts...)
}

func (c *Container) buildBackend() (cache.Backend, error) {
	switch c.config.Backend {
	case BackendSturdyc:
		return cache.NewSturdycBackend(c.config.Sturdyc)
	case BackendRistretto:
		return cache.NewRistrettoBackend(c.config.Ristretto)
	case BackendRedis:
		if c.redis != nil {
			return cache.NewRedisBackend(cache.RedisConfig{Client: c.redis})
		}
		client := goredis.NewClient(&goredis.Options{
			Addr:     c.config.Redis.Addr,
			Password: c.config.Redis.Password,
			DB:       c.config.Redis.DB,
		})
		return cache.NewRedisBackend(cache.RedisConfig{Client: client, CloseClient: true})
	}
	return nil, nil
}

// Backend returns the shared backend, nil for BackendNone.
func (c *Container) Backend() cache.Backend {
	return c.backend
}

// Logger returns the shared logger.
func (c *Container) Logger() cache.Logger {
	return c.logger
}

// Hooks returns the shared cache hooks.
func (c *Container) Hooks() cache.Hooks {
	return c.hooks
}

// Config returns a copy of the container configuration.
func (c *Container) Config() Config {
	return c.config
}

// Close releases the backend. Drain services with Wait first.
func (c *Container) Close(ctx context.Context) error {
	if closer, ok := c.backend.(cache.Closer); ok {
		return closer.Close(ctx)
	}
	return nil
}

// NewService builds a service over st sharing the container's backend.
// uniqueKey namespaces T inside Config.Cache.AppName; empty derives it from
// the type name. opts are applied after the container's logger and hooks.
//
// Since Go methods cannot have type parameters, this is a package-level
// function: NewService[User](container, userStore, "|user").
func NewService[T entity.Entity](c *Container, st store.Store[T], uniqueKey string, opts ...service.Option[T]) (*service.Service[T], error) {
	cfg := c.config.Cache
	cfg.UniqueKey = uniqueKey

	all := make([]service.Option[T], 0, len(opts)+2)
	all = append(all, service.WithLogger[T](c.logger), service.WithHooks[T](c.hooks))
	all = append(all, opts...)

	return service.New[T](st, c.backend, cfg, all...)
}
