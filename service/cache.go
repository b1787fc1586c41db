package service

import (
	"context"
	"errors"

	errs "github.com/jmgilman/go/errors"
	"github.com/sourcegraph/conc/panics"

	"github.com/goliatone/go-repository-service/cache"
	"github.com/goliatone/go-repository-service/entity"
	"github.com/goliatone/go-repository-service/store"
)

var errMissingID = errs.New(errs.CodeInvalidInput, "entity has no identity to reference")

// GetCache looks cond up in the cache. Reference entries are followed to the
// identity keyed entry; when that entry is gone the entity is reloaded from
// the store and the entry rewritten. Every failure is logged and reported as
// a miss.
func (s *Service[T]) GetCache(ctx context.Context, cond entity.Condition) (T, bool) {
	var zero T
	if !s.Enabled() || cond.IsEmpty() {
		return zero, false
	}

	key := s.keys.Build(cond)
	raw, ok := s.fetch(ctx, key)
	if !ok {
		s.hooks.Miss(key)
		return zero, false
	}

	if id, isRef := cache.ParseReference(raw); isRef {
		return s.resolve(ctx, key, id)
	}

	record, ok := s.decode(key, raw)
	if !ok {
		s.hooks.Miss(key)
		return zero, false
	}
	s.hooks.Hit(key, false)
	return record, true
}

func (s *Service[T]) resolve(ctx context.Context, refKey, id string) (T, bool) {
	var zero T
	idCond := entity.Where(s.idField, id)
	idKey := s.keys.Build(idCond)

	if raw, ok := s.fetch(ctx, idKey); ok {
		record, ok := s.decode(idKey, raw)
		if !ok {
			s.hooks.Miss(refKey)
			return zero, false
		}
		s.hooks.Hit(refKey, true)
		return record, true
	}

	record, err := s.store.FindOne(ctx, idCond)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.warn("fallback", idKey, err)
		}
		s.hooks.Miss(refKey)
		return zero, false
	}

	s.SetCache(ctx, idCond, record)
	s.hooks.RefRepaired(refKey, id)
	s.hooks.Hit(refKey, true)
	return record, true
}

// SetCache stores record under cond. Conditions carrying the identity field
// get the encoded record, any other condition a reference to the identity.
// The write is detached from ctx and its failures are only logged.
func (s *Service[T]) SetCache(ctx context.Context, cond entity.Condition, record T) {
	if !s.Enabled() || cond.IsEmpty() {
		return
	}

	key := s.keys.Build(cond)
	var value string
	if cond.HasValue(s.idField) {
		data, err := s.codec.Encode(record)
		if err != nil {
			s.warn("encode", key, err)
			return
		}
		value = string(data)
	} else {
		id := record.GetID()
		if id == "" {
			s.warn("set", key, errMissingID)
			return
		}
		value = cache.Reference(id)
	}

	s.detach(ctx, "set", key, func(ctx context.Context) error {
		return s.backend.Set(ctx, key, value, cache.ModeEX, s.ttl)
	})
}

// DeleteCache removes the entry for cond. References elsewhere that point
// at the same identity are left alone; they fall back to the store.
func (s *Service[T]) DeleteCache(ctx context.Context, cond entity.Condition) {
	if !s.Enabled() || cond.IsEmpty() {
		return
	}

	key := s.keys.Build(cond)
	s.detach(ctx, "del", key, func(ctx context.Context) error {
		_, err := s.backend.Del(ctx, key)
		return err
	})
}

func (s *Service[T]) fetch(ctx context.Context, key string) (string, bool) {
	var (
		raw string
		ok  bool
		err error
		pc  panics.Catcher
	)
	pc.Try(func() { raw, ok, err = s.backend.Get(ctx, key) })
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}
	if err != nil {
		s.warn("get", key, err)
		return "", false
	}
	return raw, ok
}

func (s *Service[T]) decode(key, raw string) (T, bool) {
	record, err := s.codec.Decode([]byte(raw))
	if err != nil {
		s.warn("decode", key, err)
		var zero T
		return zero, false
	}
	return record, true
}

// detach runs fn on a tracked goroutine with a context that outlives the
// caller's, bounded by the configured write timeout.
func (s *Service[T]) detach(ctx context.Context, op, key string, fn func(context.Context) error) {
	base := context.WithoutCancel(ctx)
	s.tasks.Go(func() {
		taskCtx, cancel := base, context.CancelFunc(func() {})
		if s.writeTimeout > 0 {
			taskCtx, cancel = context.WithTimeout(base, s.writeTimeout)
		}
		defer cancel()

		var (
			err error
			pc  panics.Catcher
		)
		pc.Try(func() { err = fn(taskCtx) })
		if r := pc.Recovered(); r != nil {
			err = r.AsError()
		}
		if err != nil {
			s.warn(op, key, err)
		}
	})
}

func (s *Service[T]) warn(op, key string, err error) {
	s.logger.Warn("cache "+op+" failed", cache.Fields{
		"op":  op,
		"key": key,
		"err": err.Error(),
	})
	s.hooks.Error(op, key, err)
}
