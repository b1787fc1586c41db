// Package store defines the authoritative record store the service wraps,
// plus the paging and sorting helpers shared by its adapters.
package store

import (
	"context"

	errs "github.com/jmgilman/go/errors"

	"github.com/goliatone/go-repository-service/entity"
)

// ErrNotFound is returned by FindOne and FindOneAndUpdate when nothing
// matches. Adapters wrap it, so test with errors.Is.
var ErrNotFound = errs.New(errs.CodeNotFound, "record not found")

// Store is the persistence contract. Errors are returned to the caller of
// the service unchanged.
type Store[T entity.Entity] interface {
	Create(ctx context.Context, record T) (T, error)
	// UpdateByID applies patch to the record and reports whether one matched.
	UpdateByID(ctx context.Context, id string, patch entity.Patch) (bool, error)
	// DeleteByID removes the record and reports whether one matched.
	DeleteByID(ctx context.Context, id string) (bool, error)
	FindOne(ctx context.Context, cond entity.Condition) (T, error)
	FindOneAndUpdate(ctx context.Context, cond entity.Condition, patch entity.Patch, opts UpdateOptions) (T, error)
	FindMany(ctx context.Context, cond entity.Condition) ([]T, error)
	FindAll(ctx context.Context, cond entity.Condition, opts FindAllOptions) (Page[T], error)
}

// UpdateOptions tunes FindOneAndUpdate.
type UpdateOptions struct {
	// Upsert creates the record from cond and patch when nothing matches.
	Upsert bool
	// ReturnOriginal returns the record as it was before the update.
	ReturnOriginal bool
}

// FindAllOptions controls paging, projection and ordering of FindAll.
type FindAllOptions struct {
	// Fields is a space or comma separated projection. Empty selects all.
	Fields string
	// Limit is the page size. Defaults to DefaultLimit.
	Limit int
	// Page is 1-based. Defaults to 1.
	Page int
	// Sort lists fields separated by spaces or commas; a leading "-"
	// sorts that field descending, e.g. "-created_at name".
	Sort string
}

// Page is one page of FindAll results.
type Page[T any] struct {
	Total      int `json:"total"`
	Limit      int `json:"limit"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	Data       []T `json:"data"`
}

// NotFound wraps ErrNotFound with the condition that missed.
func NotFound(cond entity.Condition) error {
	err := errs.Wrap(ErrNotFound, errs.CodeNotFound, "no match for "+cond.String())
	return errs.WithContext(err, "condition", cond.String())
}
