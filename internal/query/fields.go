package query

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the value type of a registered field.
type Kind int

const (
	// KindOpaque fields can be selected but not filtered or sorted.
	KindOpaque Kind = iota
	KindString
	KindEnum
	KindTime
	KindID
	KindNumber
)

// Field maps one client-visible field to its storage names.
type Field struct {
	// Name is the JSON name used in query strings.
	Name   string
	Column string
	BSON   string
	Kind   Kind
	Enum   []string
}

// Filterable reports whether the field may appear in a filter or sort.
func (f Field) Filterable() bool { return f.Kind != KindOpaque }

// Selectable reports whether the field may appear in select.
func (f Field) Selectable() bool { return !strings.Contains(f.Name, ".") }

// Parse converts a raw query-string value to the field's type.
func (f Field) Parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch f.Kind {
	case KindString:
		return raw, nil
	case KindEnum:
		if !slices.Contains(f.Enum, raw) {
			return nil, fmt.Errorf("%s must be one of: %s", f.Name, strings.Join(f.Enum, ", "))
		}
		return raw, nil
	case KindTime:
		t, err := ParseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a date (YYYY-MM-DD) or RFC3339 timestamp", f.Name)
		}
		return t, nil
	case KindID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a valid id", f.Name)
		}
		return id, nil
	case KindNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", f.Name)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%s cannot be filtered", f.Name)
	}
}

// ParseTime accepts RFC3339 timestamps and bare dates, returning UTC.
func ParseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Registry is the set of fields a resource exposes to queries.
type Registry struct {
	fields      map[string]Field
	defaultSort []SortKey
}

// NewRegistry builds a registry; defaultSort uses the sort syntax, e.g. "-createdAt".
func NewRegistry(defaultSort string, fields ...Field) *Registry {
	r := &Registry{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		if f.BSON == "" {
			f.BSON = f.Name
		}
		r.fields[f.Name] = f
	}
	keys, err := r.parseSort(defaultSort)
	if err != nil {
		panic(err)
	}
	r.defaultSort = keys
	return r
}

// Lookup finds a field by its JSON name.
func (r *Registry) Lookup(name string) (Field, bool) {
	f, ok := r.fields[name]
	return f, ok
}

// MustLookup is Lookup for fields known at compile time.
func (r *Registry) MustLookup(name string) Field {
	f, ok := r.fields[name]
	if !ok {
		panic("query: unknown field " + name)
	}
	return f
}
