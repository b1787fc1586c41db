package entity

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Field is a single name/value pair of a Condition.
type Field struct {
	Name  string
	Value any
}

// Condition is an ordered set of field equality constraints. The order in
// which fields were added is preserved and is significant when the condition
// is turned into a cache key.
type Condition []Field

// Where starts a condition with a single field.
func Where(name string, value any) Condition {
	return Condition{{Name: name, Value: value}}
}

// ByID is shorthand for Where(IDField, id).
func ByID(id string) Condition {
	return Where(IDField, id)
}

// And returns a copy of c with the field appended. If the field is already
// present its value is replaced in place and the order is kept.
func (c Condition) And(name string, value any) Condition {
	out := make(Condition, len(c), len(c)+1)
	copy(out, c)
	for i := range out {
		if out[i].Name == name {
			out[i].Value = value
			return out
		}
	}
	return append(out, Field{Name: name, Value: value})
}

// IsEmpty reports whether c has no fields.
func (c Condition) IsEmpty() bool { return len(c) == 0 }

// Get returns the value of the named field.
func (c Condition) Get(name string) (any, bool) {
	for _, f := range c {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// HasValue reports whether the named field is present with a non-zero value.
func (c Condition) HasValue(name string) bool {
	v, ok := c.Get(name)
	return ok && !isZero(v)
}

// Names returns the field names in condition order.
func (c Condition) Names() []string {
	names := make([]string, len(c))
	for i, f := range c {
		names[i] = f.Name
	}
	return names
}

// Sorted returns a copy of c ordered by field name.
func (c Condition) Sorted() Condition {
	out := make(Condition, len(c))
	copy(out, c)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Map returns the condition as a plain map. Field order is lost.
func (c Condition) Map() map[string]any {
	m := make(map[string]any, len(c))
	for _, f := range c {
		m[f.Name] = f.Value
	}
	return m
}

// String renders the condition for logs.
func (c Condition) String() string {
	parts := make([]string, len(c))
	for i, f := range c {
		parts[i] = f.Name + "=" + FormatValue(f.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// FormatValue renders a condition value as text. It is used both for cache
// key segments and for value comparison in the in-memory store, so that a
// value read back from JSON compares equal to the value it was written from.
func FormatValue(v any) string {
	if v == nil {
		return "null"
	}

	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "null"
		}
		return FormatValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	case reflect.Map, reflect.Struct:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}

	return fmt.Sprintf("%v", v)
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return true
	}
	return rv.IsZero()
}
