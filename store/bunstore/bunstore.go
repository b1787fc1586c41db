// Package bunstore implements store.Store on top of uptrace/bun. Condition
// and patch field names are used as column names.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	errs "github.com/jmgilman/go/errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-repository-service/entity"
	"github.com/goliatone/go-repository-service/store"
)

// Store is a bun backed store for records of type T.
type Store[T entity.Entity] struct {
	db        *bun.DB
	idField   string
	updatedAt string
	now       func() time.Time
	newID     func() string
}

// Option configures a Store.
type Option[T entity.Entity] func(*Store[T])

// WithIDField sets the identity column, "id" by default.
func WithIDField[T entity.Entity](name string) Option[T] {
	return func(s *Store[T]) { s.idField = name }
}

// WithUpdatedAtColumn sets the column stamped on every update. Empty disables it.
func WithUpdatedAtColumn[T entity.Entity](name string) Option[T] {
	return func(s *Store[T]) { s.updatedAt = name }
}

// WithClock overrides the timestamp source.
func WithClock[T entity.Entity](now func() time.Time) Option[T] {
	return func(s *Store[T]) { s.now = now }
}

// WithIDGenerator overrides uuid identities.
func WithIDGenerator[T entity.Entity](fn func() string) Option[T] {
	return func(s *Store[T]) { s.newID = fn }
}

// New returns a store using db.
func New[T entity.Entity](db *bun.DB, opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		db:        db,
		idField:   entity.IDField,
		updatedAt: "updated_at",
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTable creates the table for T if it does not exist.
func (s *Store[T]) CreateTable(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*T)(nil)).IfNotExists().Exec(ctx); err != nil {
		return errs.Wrap(err, errs.CodeDatabase, "create table")
	}
	return nil
}

// Create inserts record, assigning an identity and timestamps first.
func (s *Store[T]) Create(ctx context.Context, record T) (T, error) {
	return s.insert(ctx, s.db, record)
}

func (s *Store[T]) insert(ctx context.Context, db bun.IDB, record T) (T, error) {
	var zero T
	if m, ok := entity.AsMutable(&record); ok {
		if record.GetID() == "" {
			m.SetID(s.newID())
		}
		m.Touch(s.now())
	}
	if record.GetID() == "" {
		return zero, errs.New(errs.CodeInvalidInput, "record has no identity")
	}

	if _, err := db.NewInsert().Model(&record).Exec(ctx); err != nil {
		return zero, errs.Wrap(err, errs.CodeDatabase, "insert record")
	}
	return record, nil
}

// UpdateByID applies patch to the row with the given id.
func (s *Store[T]) UpdateByID(ctx context.Context, id string, patch entity.Patch) (bool, error) {
	return s.update(ctx, s.db, id, patch)
}

func (s *Store[T]) update(ctx context.Context, db bun.IDB, id string, patch entity.Patch) (bool, error) {
	patch = patch.Without(s.idField, s.updatedAt)

	q := db.NewUpdate().Model((*T)(nil)).Where("? = ?", bun.Ident(s.idField), id)
	for _, k := range patch.Keys() {
		q = q.Set("? = ?", bun.Ident(k), patch[k])
	}
	if s.updatedAt != "" {
		q = q.Set("? = ?", bun.Ident(s.updatedAt), s.now())
	} else if len(patch) == 0 {
		return s.exists(ctx, db, id)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return false, errs.Wrap(err, errs.CodeDatabase, "update record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.Wrap(err, errs.CodeDatabase, "update record")
	}
	return n > 0, nil
}

func (s *Store[T]) exists(ctx context.Context, db bun.IDB, id string) (bool, error) {
	ok, err := db.NewSelect().Model((*T)(nil)).Where("? = ?", bun.Ident(s.idField), id).Exists(ctx)
	if err != nil {
		return false, errs.Wrap(err, errs.CodeDatabase, "check record")
	}
	return ok, nil
}

// DeleteByID removes the row with the given id.
func (s *Store[T]) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := s.db.NewDelete().Model((*T)(nil)).Where("? = ?", bun.Ident(s.idField), id).Exec(ctx)
	if err != nil {
		return false, errs.Wrap(err, errs.CodeDatabase, "delete record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.Wrap(err, errs.CodeDatabase, "delete record")
	}
	return n > 0, nil
}

// FindOne returns the first row matching cond.
func (s *Store[T]) FindOne(ctx context.Context, cond entity.Condition) (T, error) {
	return s.findOne(ctx, s.db, cond)
}

func (s *Store[T]) findOne(ctx context.Context, db bun.IDB, cond entity.Condition) (T, error) {
	var record T
	q := db.NewSelect().Model(&record).Limit(1)
	if expr, args := where(cond); expr != "" {
		q = q.Where(expr, args...)
	}
	if err := q.Scan(ctx); err != nil {
		var zero T
		if errors.Is(err, sql.ErrNoRows) {
			return zero, store.NotFound(cond)
		}
		return zero, errs.Wrap(err, errs.CodeDatabase, "select record")
	}
	return record, nil
}

// FindOneAndUpdate patches the first row matching cond inside a transaction.
func (s *Store[T]) FindOneAndUpdate(ctx context.Context, cond entity.Condition, patch entity.Patch, opts store.UpdateOptions) (T, error) {
	var out T
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := s.findOne(ctx, tx, cond)
		if errors.Is(err, store.ErrNotFound) && opts.Upsert {
			fields := cond.Map()
			for k, v := range patch {
				fields[k] = v
			}
			record, err := entity.FromMap[T](fields)
			if err != nil {
				return errs.Wrap(err, errs.CodeInvalidInput, "build upserted record")
			}
			out, err = s.insert(ctx, tx, record)
			return err
		}
		if err != nil {
			return err
		}

		if _, err := s.update(ctx, tx, current.GetID(), patch); err != nil {
			return err
		}
		if opts.ReturnOriginal {
			out = current
			return nil
		}
		out, err = s.findOne(ctx, tx, entity.Where(s.idField, current.GetID()))
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// FindMany returns every row matching cond.
func (s *Store[T]) FindMany(ctx context.Context, cond entity.Condition) ([]T, error) {
	var records []T
	q := s.db.NewSelect().Model(&records)
	if expr, args := where(cond); expr != "" {
		q = q.Where(expr, args...)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errs.Wrap(err, errs.CodeDatabase, "select records")
	}
	return records, nil
}

// FindAll counts the rows matching cond and returns one page of them.
func (s *Store[T]) FindAll(ctx context.Context, cond entity.Condition, opts store.FindAllOptions) (store.Page[T], error) {
	opts = opts.Normalize()
	expr, args := where(cond)

	countQ := s.db.NewSelect().Model((*T)(nil))
	if expr != "" {
		countQ = countQ.Where(expr, args...)
	}
	total, err := countQ.Count(ctx)
	if err != nil {
		return store.Page[T]{}, errs.Wrap(err, errs.CodeDatabase, "count records")
	}

	var records []T
	q := s.db.NewSelect().Model(&records).Limit(opts.Limit).Offset(opts.Offset())
	if expr != "" {
		q = q.Where(expr, args...)
	}
	if cols := opts.Projection(s.idField); len(cols) > 0 {
		q = q.Column(cols...)
	}
	for _, f := range opts.SortFields() {
		if f.Desc {
			q = q.OrderExpr("? DESC", bun.Ident(f.Name))
		} else {
			q = q.OrderExpr("? ASC", bun.Ident(f.Name))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return store.Page[T]{}, errs.Wrap(err, errs.CodeDatabase, "select records")
	}

	return store.NewPage(records, total, opts), nil
}

// where renders cond as a bun WHERE expression. nil values match NULL.
func where(cond entity.Condition) (string, []any) {
	if cond.IsEmpty() {
		return "", nil
	}
	parts := make([]string, 0, len(cond))
	args := make([]any, 0, 2*len(cond))
	for _, f := range cond {
		if f.Value == nil {
			parts = append(parts, "? IS NULL")
			args = append(args, bun.Ident(f.Name))
			continue
		}
		parts = append(parts, "? = ?")
		args = append(args, bun.Ident(f.Name), f.Value)
	}
	return strings.Join(parts, " AND "), args
}
