// Package entity defines the record contract shared by stores, caches and the
// generic service, plus the ordered condition and patch shapes used to query
// and update records.
package entity

import "time"

// IDField is the default name of the identity field in conditions and
// documents.
const IDField = "id"

// Entity is any record with a string identity.
type Entity interface {
	GetID() string
}

// Mutable is implemented by entities whose identity and timestamps can be
// assigned by a store adapter. Embedding BaseEntity in a struct makes a
// pointer to that struct Mutable.
type Mutable interface {
	Entity
	SetID(id string)
	Touch(now time.Time)
}

// BaseEntity carries the identity and bookkeeping timestamps. Embed it in
// domain records. JSON names match bun column names so conditions can be
// used against both the cache codec and SQL stores.
type BaseEntity struct {
	ID        string    `json:"id" bun:"id,pk"`
	CreatedAt time.Time `json:"created_at" bun:"created_at,notnull"`
	UpdatedAt time.Time `json:"updated_at" bun:"updated_at,notnull"`
}

// GetID returns the record identity.
func (e BaseEntity) GetID() string { return e.ID }

// SetID assigns the record identity.
func (e *BaseEntity) SetID(id string) { e.ID = id }

// Touch stamps UpdatedAt, and CreatedAt when it has not been set yet.
func (e *BaseEntity) Touch(now time.Time) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
}

// AsMutable returns the Mutable view of record, whether T is a struct with
// pointer methods or already a pointer type.
func AsMutable[T Entity](record *T) (Mutable, bool) {
	if m, ok := any(record).(Mutable); ok {
		return m, true
	}
	m, ok := any(*record).(Mutable)
	return m, ok
}
