// Package memstore is an in-process Store backed by a concurrent map. It is
// meant for tests, demos and small single-node deployments.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	errs "github.com/jmgilman/go/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-repository-service/entity"
	"github.com/goliatone/go-repository-service/store"
)

type row[T any] struct {
	seq    uint64
	record T
}

// Store keeps records in insertion order, keyed by identity.
type Store[T entity.Entity] struct {
	rows    *xsync.MapOf[string, row[T]]
	seq     atomic.Uint64
	writeMu sync.Mutex
	idField string
	now     func() time.Time
	newID   func() string
}

// Option configures a Store.
type Option[T entity.Entity] func(*Store[T])

// WithClock overrides the timestamp source used for Touch.
func WithClock[T entity.Entity](now func() time.Time) Option[T] {
	return func(s *Store[T]) { s.now = now }
}

// WithIDGenerator overrides uuid identities.
func WithIDGenerator[T entity.Entity](fn func() string) Option[T] {
	return func(s *Store[T]) { s.newID = fn }
}

// WithIDField sets the identity field name, "id" by default.
func WithIDField[T entity.Entity](name string) Option[T] {
	return func(s *Store[T]) { s.idField = name }
}

// New returns an empty store.
func New[T entity.Entity](opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		rows:    xsync.NewMapOf[string, row[T]](),
		idField: entity.IDField,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store[entity.BaseEntity] = (*Store[entity.BaseEntity])(nil)

// Len returns the number of stored records.
func (s *Store[T]) Len() int { return s.rows.Size() }

// Create stores record, assigning an identity when it has none.
func (s *Store[T]) Create(_ context.Context, record T) (T, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.insert(record)
}

func (s *Store[T]) insert(record T) (T, error) {
	var zero T
	m, ok := entity.AsMutable(&record)
	if !ok {
		return zero, errs.New(errs.CodeInvalidInput, "record type cannot be assigned an identity")
	}
	if record.GetID() == "" {
		m.SetID(s.newID())
	}
	m.Touch(s.now())

	id := record.GetID()
	if _, exists := s.rows.Load(id); exists {
		return zero, errs.WithContext(
			errs.New(errs.CodeAlreadyExists, "record already exists"), "id", id)
	}
	s.rows.Store(id, row[T]{seq: s.seq.Add(1), record: record})
	return record, nil
}

// UpdateByID merges patch into the record with the given id.
func (s *Store[T]) UpdateByID(_ context.Context, id string, patch entity.Patch) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	r, ok := s.rows.Load(id)
	if !ok {
		return false, nil
	}
	if _, err := s.replace(r, patch); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store[T]) replace(r row[T], patch entity.Patch) (T, error) {
	updated, err := entity.Apply(r.record, patch.Without(s.idField))
	if err != nil {
		var zero T
		return zero, errs.Wrap(err, errs.CodeInvalidInput, "apply patch")
	}
	if m, ok := entity.AsMutable(&updated); ok {
		m.Touch(s.now())
	}
	s.rows.Store(r.record.GetID(), row[T]{seq: r.seq, record: updated})
	return updated, nil
}

// DeleteByID removes the record with the given id.
func (s *Store[T]) DeleteByID(_ context.Context, id string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, ok := s.rows.LoadAndDelete(id)
	return ok, nil
}

// FindOne returns the first record, in insertion order, matching cond.
func (s *Store[T]) FindOne(_ context.Context, cond entity.Condition) (T, error) {
	var zero T
	rows, err := s.match(cond)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, store.NotFound(cond)
	}
	return rows[0].record, nil
}

// FindOneAndUpdate patches the first record matching cond.
func (s *Store[T]) FindOneAndUpdate(_ context.Context, cond entity.Condition, patch entity.Patch, opts store.UpdateOptions) (T, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var zero T
	rows, err := s.match(cond)
	if err != nil {
		return zero, err
	}

	if len(rows) == 0 {
		if !opts.Upsert {
			return zero, store.NotFound(cond)
		}
		fields := cond.Map()
		for k, v := range patch {
			fields[k] = v
		}
		record, err := entity.FromMap[T](fields)
		if err != nil {
			return zero, errs.Wrap(err, errs.CodeInvalidInput, "build upserted record")
		}
		return s.insert(record)
	}

	updated, err := s.replace(rows[0], patch)
	if err != nil {
		return zero, err
	}
	if opts.ReturnOriginal {
		return rows[0].record, nil
	}
	return updated, nil
}

// FindMany returns every record matching cond in insertion order.
func (s *Store[T]) FindMany(_ context.Context, cond entity.Condition) ([]T, error) {
	rows, err := s.match(cond)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = r.record
	}
	return out, nil
}

// FindAll returns one page of records matching cond.
func (s *Store[T]) FindAll(_ context.Context, cond entity.Condition, opts store.FindAllOptions) (store.Page[T], error) {
	opts = opts.Normalize()

	rows, err := s.match(cond)
	if err != nil {
		return store.Page[T]{}, err
	}

	docs := make([]map[string]any, len(rows))
	for i, r := range rows {
		if docs[i], err = entity.ToMap(r.record); err != nil {
			return store.Page[T]{}, errs.Wrap(err, errs.CodeInternal, "encode record")
		}
	}

	if keys := opts.SortFields(); len(keys) > 0 {
		idx := make([]int, len(rows))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return less(docs[idx[a]], docs[idx[b]], keys)
		})
		sortedRows := make([]row[T], len(rows))
		sortedDocs := make([]map[string]any, len(rows))
		for i, j := range idx {
			sortedRows[i], sortedDocs[i] = rows[j], docs[j]
		}
		rows, docs = sortedRows, sortedDocs
	}

	total := len(rows)
	start := opts.Offset()
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}

	projection := opts.Projection(s.idField)
	data := make([]T, 0, end-start)
	for i := start; i < end; i++ {
		if projection == nil {
			data = append(data, rows[i].record)
			continue
		}
		projected := make(map[string]any, len(projection))
		for _, f := range projection {
			if v, ok := docs[i][f]; ok {
				projected[f] = v
			}
		}
		record, err := entity.FromMap[T](projected)
		if err != nil {
			return store.Page[T]{}, errs.Wrap(err, errs.CodeInternal, "project record")
		}
		data = append(data, record)
	}

	return store.NewPage(data, total, opts), nil
}

// match returns rows matching cond ordered by insertion.
func (s *Store[T]) match(cond entity.Condition) ([]row[T], error) {
	var (
		out      []row[T]
		matchErr error
	)

	if id, ok := store.IDFrom(cond, s.idField); ok && len(cond) == 1 {
		if r, found := s.rows.Load(id); found {
			out = append(out, r)
		}
		return out, nil
	}

	want := make(map[string]func(any) bool, len(cond))
	for _, f := range cond {
		want[f.Name] = matchValue(f.Value)
	}

	s.rows.Range(func(_ string, r row[T]) bool {
		doc, err := entity.ToMap(r.record)
		if err != nil {
			matchErr = errs.Wrap(err, errs.CodeInternal, "encode record")
			return false
		}
		for name, ok := range want {
			if !ok(doc[name]) {
				return true
			}
		}
		out = append(out, r)
		return true
	})
	if matchErr != nil {
		return nil, matchErr
	}

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out, nil
}

// matchValue returns a predicate over a decoded document value. Times are
// compared as instants since documents keep the offset they were written with.
func matchValue(want any) func(any) bool {
	switch t := want.(type) {
	case time.Time:
		return func(v any) bool { return sameInstant(v, t) }
	case *time.Time:
		if t != nil {
			return func(v any) bool { return sameInstant(v, *t) }
		}
	}

	text := entity.FormatValue(want)
	return func(v any) bool { return entity.FormatValue(v) == text }
}

func sameInstant(v any, want time.Time) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	got, err := time.Parse(time.RFC3339Nano, s)
	return err == nil && got.Equal(want)
}

func less(a, b map[string]any, keys []store.SortField) bool {
	for _, k := range keys {
		c := compare(a[k.Name], b[k.Name])
		if c == 0 {
			continue
		}
		if k.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compare(a, b any) int {
	af, aNum := number(a)
	bf, bNum := number(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	as, bs := entity.FormatValue(a), entity.FormatValue(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
