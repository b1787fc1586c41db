package service

import (
	"reflect"
	"time"

	errs "github.com/jmgilman/go/errors"
	"github.com/sourcegraph/conc"

	"github.com/goliatone/go-repository-service/cache"
	"github.com/goliatone/go-repository-service/entity"
	"github.com/goliatone/go-repository-service/store"
)

// Service composes a store with an optional read-through cache backend.
// It is safe for concurrent use and must not be copied after first use.
type Service[T entity.Entity] struct {
	store        store.Store[T]
	backend      cache.Backend
	keys         cache.KeyBuilder
	codec        cache.Codec[T]
	ttl          time.Duration
	writeTimeout time.Duration
	idField      string
	logger       cache.Logger
	hooks        cache.Hooks
	tasks        conc.WaitGroup
}

// Option customises a Service.
type Option[T entity.Entity] func(*Service[T])

// WithLogger sets the logger used for swallowed cache failures.
func WithLogger[T entity.Entity](logger cache.Logger) Option[T] {
	return func(s *Service[T]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHooks sets the cache event observer.
func WithHooks[T entity.Entity](hooks cache.Hooks) Option[T] {
	return func(s *Service[T]) {
		if hooks != nil {
			s.hooks = hooks
		}
	}
}

// WithCodec overrides the codec selected by Config.Codec.
func WithCodec[T entity.Entity](codec cache.Codec[T]) Option[T] {
	return func(s *Service[T]) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// New builds a service over st. A nil backend, or cfg.Disabled, turns the
// service into a pass-through that never touches a cache. The flag is read
// here and nowhere else.
func New[T entity.Entity](st store.Store[T], backend cache.Backend, cfg cache.Config, opts ...Option[T]) (*Service[T], error) {
	if st == nil {
		return nil, errs.New(errs.CodeInvalidInput, "service requires a store")
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := cache.CodecByName[T](cfg.Codec)
	if err != nil {
		return nil, err
	}

	uniqueKey := cfg.UniqueKey
	if uniqueKey == "" {
		uniqueKey = cache.KeySeparator + typeKey[T]()
	}

	s := &Service[T]{
		store:        st,
		keys:         cache.NewKeyBuilder(cache.Prefix(cfg.AppName, uniqueKey), cfg.NormalizeKeyOrder),
		codec:        codec,
		ttl:          cfg.TTL,
		writeTimeout: cfg.WriteTimeout,
		idField:      cfg.IDField,
		logger:       cache.NopLogger{},
		hooks:        cache.NopHooks{},
	}
	if !cfg.Disabled {
		s.backend = backend
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Debug("repository service ready", cache.Fields{
		"prefix":  s.keys.Prefix(),
		"enabled": s.Enabled(),
		"ttl":     s.ttl.String(),
	})
	return s, nil
}

// Enabled reports whether lookups and writes reach the cache backend.
func (s *Service[T]) Enabled() bool { return s.backend != nil }

// CacheKey returns the key cond is cached under.
func (s *Service[T]) CacheKey(cond entity.Condition) string {
	return s.keys.Build(cond)
}

// Wait blocks until every detached cache write and delete has finished.
// Call it on shutdown; the service remains usable afterwards.
func (s *Service[T]) Wait() {
	s.tasks.Wait()
}

// typeKey names T for the default key namespace, e.g. *UserProfile becomes
// "user_profile".
func typeKey[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := toSnake(t.Name()); name != "" {
		return name
	}
	return "entity"
}
