package entity

import (
	"encoding/json"
	"sort"
)

// Patch is a partial document. Keys are entity field names.
type Patch map[string]any

// Keys returns the patch keys in lexical order.
func (p Patch) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Without returns a copy of p minus the named keys.
func (p Patch) Without(names ...string) Patch {
	out := make(Patch, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, n := range names {
		delete(out, n)
	}
	return out
}

// ToMap converts a record into a field map keyed by its JSON names.
func ToMap[T any](record T) (map[string]any, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FromMap builds a record from a field map keyed by JSON names.
func FromMap[T any](fields map[string]any) (T, error) {
	var out T
	data, err := json.Marshal(fields)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

// Apply returns a copy of record with the patch merged over it.
func Apply[T any](record T, patch Patch) (T, error) {
	fields, err := ToMap(record)
	if err != nil {
		var zero T
		return zero, err
	}
	for k, v := range patch {
		fields[k] = v
	}
	return FromMap[T](fields)
}
