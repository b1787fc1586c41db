// Package repostore adapts a go-repository-bun Repository to store.Store so
// services can sit on top of repositories an application already has.
package repostore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	errs "github.com/jmgilman/go/errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-repository-service/entity"
	"github.com/goliatone/go-repository-service/store"
)

// Store forwards to a repository.Repository. Conditions become
// SelectCriteria, patches are merged into the loaded record and saved with
// Update.
type Store[T entity.Entity] struct {
	repo       repository.Repository[T]
	idField    string
	isNotFound func(error) bool
	now        func() time.Time
	newID      func() string
}

// Option configures a Store.
type Option[T entity.Entity] func(*Store[T])

// WithIDField sets the identity column, "id" by default.
func WithIDField[T entity.Entity](name string) Option[T] {
	return func(s *Store[T]) { s.idField = name }
}

// WithNotFound sets how repository errors are recognised as a miss. The
// default matches sql.ErrNoRows anywhere in the chain.
func WithNotFound[T entity.Entity](fn func(error) bool) Option[T] {
	return func(s *Store[T]) { s.isNotFound = fn }
}

// WithClock overrides the timestamp source.
func WithClock[T entity.Entity](now func() time.Time) Option[T] {
	return func(s *Store[T]) { s.now = now }
}

// WithIDGenerator overrides uuid identities.
func WithIDGenerator[T entity.Entity](fn func() string) Option[T] {
	return func(s *Store[T]) { s.newID = fn }
}

// New wraps repo.
func New[T entity.Entity](repo repository.Repository[T], opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		repo:    repo,
		idField: entity.IDField,
		isNotFound: func(err error) bool {
			return errors.Is(err, sql.ErrNoRows)
		},
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create assigns identity and timestamps when T allows it, then inserts.
func (s *Store[T]) Create(ctx context.Context, record T) (T, error) {
	if m, ok := entity.AsMutable(&record); ok {
		if record.GetID() == "" {
			m.SetID(s.newID())
		}
		m.Touch(s.now())
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		var zero T
		return zero, errs.Wrap(err, errs.CodeDatabase, "create record")
	}
	return created, nil
}

// UpdateByID loads the record, merges patch and saves it.
func (s *Store[T]) UpdateByID(ctx context.Context, id string, patch entity.Patch) (bool, error) {
	current, err := s.FindOne(ctx, entity.Where(s.idField, id))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := s.save(ctx, current, patch); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store[T]) save(ctx context.Context, current T, patch entity.Patch) (T, error) {
	var zero T
	updated, err := entity.Apply(current, patch.Without(s.idField))
	if err != nil {
		return zero, errs.Wrap(err, errs.CodeInvalidInput, "apply patch")
	}
	if m, ok := entity.AsMutable(&updated); ok {
		m.Touch(s.now())
	}

	id := current.GetID()
	saved, err := s.repo.Update(ctx, updated, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Where("? = ?", bun.Ident(s.idField), id)
	})
	if err != nil {
		return zero, errs.Wrap(err, errs.CodeDatabase, "update record")
	}
	return saved, nil
}

// DeleteByID loads then deletes the record.
func (s *Store[T]) DeleteByID(ctx context.Context, id string) (bool, error) {
	current, err := s.FindOne(ctx, entity.Where(s.idField, id))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := s.repo.Delete(ctx, current); err != nil {
		return false, errs.Wrap(err, errs.CodeDatabase, "delete record")
	}
	return true, nil
}

// FindOne returns the record matching cond.
func (s *Store[T]) FindOne(ctx context.Context, cond entity.Condition) (T, error) {
	record, err := s.repo.Get(ctx, Criteria(cond))
	if err != nil {
		var zero T
		if s.isNotFound(err) {
			return zero, store.NotFound(cond)
		}
		return zero, errs.Wrap(err, errs.CodeDatabase, "get record")
	}
	return record, nil
}

// FindOneAndUpdate loads, patches and saves the record matching cond. The
// repository contract exposes no transaction around the pair of calls.
func (s *Store[T]) FindOneAndUpdate(ctx context.Context, cond entity.Condition, patch entity.Patch, opts store.UpdateOptions) (T, error) {
	var zero T
	current, err := s.FindOne(ctx, cond)
	if errors.Is(err, store.ErrNotFound) && opts.Upsert {
		fields := cond.Map()
		for k, v := range patch {
			fields[k] = v
		}
		record, err := entity.FromMap[T](fields)
		if err != nil {
			return zero, errs.Wrap(err, errs.CodeInvalidInput, "build upserted record")
		}
		return s.Create(ctx, record)
	}
	if err != nil {
		return zero, err
	}

	saved, err := s.save(ctx, current, patch)
	if err != nil {
		return zero, err
	}
	if opts.ReturnOriginal {
		return current, nil
	}
	return saved, nil
}

// FindMany lists every record matching cond.
func (s *Store[T]) FindMany(ctx context.Context, cond entity.Condition) ([]T, error) {
	records, _, err := s.repo.List(ctx, Criteria(cond))
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeDatabase, "list records")
	}
	return records, nil
}

// FindAll lists one page of records. The repository returns the total count
// alongside the page.
func (s *Store[T]) FindAll(ctx context.Context, cond entity.Condition, opts store.FindAllOptions) (store.Page[T], error) {
	opts = opts.Normalize()
	records, total, err := s.repo.List(ctx, Criteria(cond), PageCriteria(opts, s.idField))
	if err != nil {
		return store.Page[T]{}, errs.Wrap(err, errs.CodeDatabase, "list records")
	}
	return store.NewPage(records, total, opts), nil
}

// Criteria renders cond as a repository select criteria. Fields become
// equality checks on columns of the same name; nil values match NULL.
func Criteria(cond entity.Condition) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, f := range cond {
			if f.Value == nil {
				q = q.Where("? IS NULL", bun.Ident(f.Name))
				continue
			}
			q = q.Where("? = ?", bun.Ident(f.Name), f.Value)
		}
		return q
	}
}

// PageCriteria applies limit, offset, projection and ordering from opts.
func PageCriteria(opts store.FindAllOptions, idField string) repository.SelectCriteria {
	opts = opts.Normalize()
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Limit(opts.Limit).Offset(opts.Offset())
		if cols := opts.Projection(idField); len(cols) > 0 {
			q = q.Column(cols...)
		}
		for _, f := range opts.SortFields() {
			if f.Desc {
				q = q.OrderExpr("? DESC", bun.Ident(f.Name))
			} else {
				q = q.OrderExpr("? ASC", bun.Ident(f.Name))
			}
		}
		return q
	}
}
