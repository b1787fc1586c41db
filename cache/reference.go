package cache

import "strings"

// RefPrefix marks a cache value as a pointer to the entity's direct entry.
const RefPrefix = "#refId_"

// Reference returns the marker stored under non-identity keys.
func Reference(id string) string {
	return RefPrefix + id
}

// ParseReference extracts the identity from a reference marker. ok is false
// for values that are not markers.
func ParseReference(raw string) (id string, ok bool) {
	if !strings.HasPrefix(raw, RefPrefix) {
		return "", false
	}
	return raw[len(RefPrefix):], true
}
