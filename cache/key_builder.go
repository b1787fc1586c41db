package cache

import (
	"strings"

	"github.com/goliatone/go-repository-service/entity"
)

const (
	// KeySeparator delimits key segments.
	KeySeparator = "|"
	// FieldSeparator joins a field name to its value inside a segment.
	FieldSeparator = "_"
)

// KeyBuilder turns a condition into a cache key of the form
// prefix|field_value|field_value. Values are not escaped, so distinct
// conditions whose rendered text collides share a key.
type KeyBuilder struct {
	prefix    string
	normalize bool
}

// NewKeyBuilder returns a builder for prefix. When normalize is set, fields
// are sorted by name before the key is built.
func NewKeyBuilder(prefix string, normalize bool) KeyBuilder {
	return KeyBuilder{prefix: prefix, normalize: normalize}
}

// Prefix composes the key prefix for a service. An empty appName disables
// namespacing entirely.
func Prefix(appName, uniqueKey string) string {
	if appName == "" {
		return ""
	}
	return appName + uniqueKey
}

// Prefix returns the configured prefix.
func (b KeyBuilder) Prefix() string { return b.prefix }

// Build serialises cond. The result depends on field order unless the
// builder normalises it.
func (b KeyBuilder) Build(cond entity.Condition) string {
	if b.normalize {
		cond = cond.Sorted()
	}

	var sb strings.Builder
	sb.WriteString(b.prefix)
	for _, f := range cond {
		sb.WriteString(KeySeparator)
		sb.WriteString(f.Name)
		sb.WriteString(FieldSeparator)
		sb.WriteString(entity.FormatValue(f.Value))
	}
	return sb.String()
}
