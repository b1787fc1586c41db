package store

import (
	"strings"

	"github.com/goliatone/go-repository-service/entity"
)

// DefaultLimit is the FindAll page size when none is given.
const DefaultLimit = 10

// SortField is one parsed entry of FindAllOptions.Sort.
type SortField struct {
	Name string
	Desc bool
}

// Normalize fills Limit and Page defaults.
func (o FindAllOptions) Normalize() FindAllOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Page <= 0 {
		o.Page = 1
	}
	return o
}

// Offset is the number of records skipped before the current page.
func (o FindAllOptions) Offset() int {
	n := o.Normalize()
	return (n.Page - 1) * n.Limit
}

// SortFields parses Sort.
func (o FindAllOptions) SortFields() []SortField {
	return ParseSort(o.Sort)
}

// Projection parses Fields. idField is always included when a projection
// is present.
func (o FindAllOptions) Projection(idField string) []string {
	fields := ParseFields(o.Fields)
	if len(fields) == 0 {
		return nil
	}
	for _, f := range fields {
		if f == idField {
			return fields
		}
	}
	return append([]string{idField}, fields...)
}

// ParseSort splits a sort expression such as "-created_at name".
func ParseSort(expr string) []SortField {
	var out []SortField
	for _, tok := range splitList(expr) {
		desc := false
		switch tok[0] {
		case '-':
			desc = true
			tok = tok[1:]
		case '+':
			tok = tok[1:]
		}
		if tok == "" {
			continue
		}
		out = append(out, SortField{Name: tok, Desc: desc})
	}
	return out
}

// ParseFields splits a projection such as "name email" or "name,email".
func ParseFields(expr string) []string {
	return splitList(expr)
}

// TotalPages returns the number of pages needed for total records.
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// NewPage assembles a Page from a result slice and the total match count.
func NewPage[T any](data []T, total int, opts FindAllOptions) Page[T] {
	opts = opts.Normalize()
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Total:      total,
		Limit:      opts.Limit,
		Page:       opts.Page,
		TotalPages: TotalPages(total, opts.Limit),
		Data:       data,
	}
}

// IDFrom returns the identity value of cond as text.
func IDFrom(cond entity.Condition, idField string) (string, bool) {
	v, ok := cond.Get(idField)
	if !ok {
		return "", false
	}
	return entity.FormatValue(v), true
}

func splitList(expr string) []string {
	return strings.FieldsFunc(expr, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
}
