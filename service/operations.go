package service

import (
	"context"

	"github.com/goliatone/go-repository-service/entity"
	"github.com/goliatone/go-repository-service/store"
)

// Create stores record. Nothing is cached until it is looked up.
func (s *Service[T]) Create(ctx context.Context, record T) (T, error) {
	return s.store.Create(ctx, record)
}

// UpdateByID patches the record and drops its identity keyed entry.
func (s *Service[T]) UpdateByID(ctx context.Context, id string, patch entity.Patch) (bool, error) {
	ok, err := s.store.UpdateByID(ctx, id, patch)
	if err != nil {
		return ok, err
	}
	s.DeleteCache(ctx, entity.Where(s.idField, id))
	return ok, nil
}

// DeleteByID removes the record and drops its identity keyed entry.
func (s *Service[T]) DeleteByID(ctx context.Context, id string) (bool, error) {
	ok, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return ok, err
	}
	s.DeleteCache(ctx, entity.Where(s.idField, id))
	return ok, nil
}

// FindOne serves cond from the cache, falling back to the store and caching
// the result under cond.
func (s *Service[T]) FindOne(ctx context.Context, cond entity.Condition) (T, error) {
	if record, ok := s.GetCache(ctx, cond); ok {
		return record, nil
	}

	record, err := s.store.FindOne(ctx, cond)
	if err != nil {
		var zero T
		return zero, err
	}
	s.SetCache(ctx, cond, record)
	return record, nil
}

// FindOneAndUpdate always goes to the store and caches the result under
// cond. Entries cached under other conditions for the same record are not
// touched and may serve the old value until they expire.
//
// With opts.ReturnOriginal and a condition carrying the identity, the entry
// under cond is dropped rather than written. The result predates the update,
// and writing it would cache the old record under its own identity. Every
// other combination writes the result under cond; this is the only case
// where FindOneAndUpdate does not cache what it returns.
func (s *Service[T]) FindOneAndUpdate(ctx context.Context, cond entity.Condition, patch entity.Patch, opts store.UpdateOptions) (T, error) {
	record, err := s.store.FindOneAndUpdate(ctx, cond, patch, opts)
	if err != nil {
		var zero T
		return zero, err
	}

	if opts.ReturnOriginal && cond.HasValue(s.idField) {
		s.DeleteCache(ctx, cond)
		return record, nil
	}
	s.SetCache(ctx, cond, record)
	return record, nil
}

// FindMany always goes to the store.
func (s *Service[T]) FindMany(ctx context.Context, cond entity.Condition) ([]T, error) {
	return s.store.FindMany(ctx, cond)
}

// FindAll always goes to the store, which applies projection, paging and
// sorting.
func (s *Service[T]) FindAll(ctx context.Context, cond entity.Condition, opts store.FindAllOptions) (store.Page[T], error) {
	return s.store.FindAll(ctx, cond, opts)
}
