// Package query turns URL query parameters into a typed filter expression,
// projection, sort order and page window that stores render natively.
//
//	GET /api/food-listings?category=dairy&expiryDate[gte]=2024-01-20&status[in]=available,reserved&sort=-expiryDate&page=2
package query

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/example/foodshare/internal/validation"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

var reserved = map[string]bool{"select": true, "sort": true, "page": true, "limit": true}

// Op is a comparison operator.
type Op string

const (
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// Node is one term of a filter conjunction.
type Node interface {
	node()
	Target() Field
}

// Equal matches records whose field equals Value.
type Equal struct {
	Field Field
	Value any
}

// Compare matches records whose field compares to Value under Op.
type Compare struct {
	Field Field
	Op    Op
	Value any
}

// Member matches records whose field is one of Values.
type Member struct {
	Field  Field
	Values []any
}

func (Equal) node()   {}
func (Compare) node() {}
func (Member) node()  {}

func (n Equal) Target() Field   { return n.Field }
func (n Compare) Target() Field { return n.Field }
func (n Member) Target() Field  { return n.Field }

// SortKey orders results by one field.
type SortKey struct {
	Field Field
	Desc  bool
}

// Query is a parsed list request.
type Query struct {
	Filter []Node
	Select []Field
	Sort   []SortKey
	Page   int
	Limit  int
}

// Offset is the number of records skipped before the current page.
func (q *Query) Offset() int { return (q.Page - 1) * q.Limit }

// And appends server-side constraints to the filter.
func (q *Query) And(nodes ...Node) { q.Filter = append(q.Filter, nodes...) }

// Parse builds a Query from query-string parameters.
func Parse(params map[string]string, reg *Registry) (*Query, error) {
	q := &Query{
		Page:  positiveOr(params["page"], DefaultPage),
		Limit: min(positiveOr(params["limit"], DefaultLimit), MaxLimit),
	}

	for _, key := range slices.Sorted(maps.Keys(params)) {
		if reserved[key] {
			continue
		}
		n, err := parseTerm(key, params[key], reg)
		if err != nil {
			return nil, err
		}
		q.Filter = append(q.Filter, n)
	}

	if sel := strings.TrimSpace(params["select"]); sel != "" {
		for _, name := range splitList(sel) {
			f, ok := reg.Lookup(name)
			if !ok || !f.Selectable() {
				return nil, validation.Errorf("select", "cannot select unknown field %q", name)
			}
			q.Select = append(q.Select, f)
		}
	}

	q.Sort = reg.defaultSort
	if s := strings.TrimSpace(params["sort"]); s != "" {
		keys, err := reg.parseSort(s)
		if err != nil {
			return nil, err
		}
		q.Sort = keys
	}
	return q, nil
}

// parseTerm reads "field=value" or "field[op]=value".
func parseTerm(key, raw string, reg *Registry) (Node, error) {
	name, op := key, Op("")
	if open := strings.IndexByte(key, '['); open > 0 && strings.HasSuffix(key, "]") {
		name, op = key[:open], Op(key[open+1:len(key)-1])
	}

	f, ok := reg.Lookup(name)
	if !ok || !f.Filterable() {
		return nil, validation.Errorf(name, "cannot filter on unknown field %q", name)
	}

	switch op {
	case "":
		v, err := f.Parse(raw)
		if err != nil {
			return nil, validation.Errorf(f.Name, "%s", err.Error())
		}
		return Equal{Field: f, Value: v}, nil
	case OpGt, OpGte, OpLt, OpLte:
		v, err := f.Parse(raw)
		if err != nil {
			return nil, validation.Errorf(f.Name, "%s", err.Error())
		}
		return Compare{Field: f, Op: op, Value: v}, nil
	case OpIn:
		items := splitList(raw)
		if len(items) == 0 {
			return nil, validation.Errorf(f.Name, "%s[in] needs at least one value", f.Name)
		}
		values := make([]any, 0, len(items))
		for _, item := range items {
			v, err := f.Parse(item)
			if err != nil {
				return nil, validation.Errorf(f.Name, "%s", err.Error())
			}
			values = append(values, v)
		}
		return Member{Field: f, Values: values}, nil
	default:
		return nil, validation.Errorf(f.Name, "unsupported operator %q on %s", string(op), f.Name)
	}
}

func (r *Registry) parseSort(s string) ([]SortKey, error) {
	var keys []SortKey
	for _, item := range splitList(s) {
		desc := strings.HasPrefix(item, "-")
		name := strings.TrimPrefix(item, "-")
		f, ok := r.Lookup(name)
		if !ok || !f.Filterable() {
			return nil, validation.Errorf("sort", "cannot sort by unknown field %q", name)
		}
		keys = append(keys, SortKey{Field: f, Desc: desc})
	}
	return keys, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func positiveOr(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// PageRef points at a neighbouring page.
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination is the neighbour metadata returned with a page.
type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// Paginate computes neighbour pages for a result of total records.
func (q *Query) Paginate(total int64) Pagination {
	var p Pagination
	if int64(q.Page)*int64(q.Limit) < total {
		p.Next = &PageRef{Page: q.Page + 1, Limit: q.Limit}
	}
	if q.Page > 1 {
		p.Prev = &PageRef{Page: q.Page - 1, Limit: q.Limit}
	}
	return p
}
