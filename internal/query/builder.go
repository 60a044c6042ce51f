// Package query turns raw list parameters into filter, sort, projection and
// pagination steps over a storage-agnostic handle.
package query

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Params are the raw query-string values of a list request, one value per key.
type Params map[string]string

const (
	KeyPage   = "page"
	KeyLimit  = "limit"
	KeySort   = "sort"
	KeyFields = "fields"
	KeyExpand = "expand"

	DefaultPage  = 1
	DefaultLimit = 100

	DefaultSortField = "createdAt"
)

var reservedKeys = map[string]struct{}{
	KeyPage:   {},
	KeyLimit:  {},
	KeySort:   {},
	KeyFields: {},
	KeyExpand: {},
}

// IsReserved reports whether key shapes the query instead of filtering data.
func IsReserved(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

type Operator string

const (
	OpEq  Operator = "eq"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
)

func (o Operator) Valid() bool {
	switch o {
	case OpEq, OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

type Condition struct {
	Field string
	Op    Operator
	Value string
}

type SortField struct {
	Field string
	Desc  bool
}

// Spec is the normalized request the builder has recorded so far.
type Spec struct {
	Filters []Condition
	Sort    []SortField
	Fields  []string
	Offset  int
	Limit   int
}

// Queryable is the handle a storage engine exposes for query shaping.
// Field names are API names; the handle maps them to its own columns.
type Queryable interface {
	Where(field string, op Operator, value string) Queryable
	Order(field string, desc bool) Queryable
	Select(fields ...string) Queryable
	OmitInternal() Queryable
	Offset(n int) Queryable
	Limit(n int) Queryable
}

// Builder records steps and applies them to its handle only in Query.
// It never performs I/O.
type Builder struct {
	handle Queryable
	params Params
	spec   Spec
	steps  []func(Queryable) Queryable
}

func New(handle Queryable, params Params) *Builder {
	return &Builder{
		handle: handle,
		params: params,
	}
}

// Filter turns every non-reserved parameter into a condition. A key written
// field[op] uses op; any other key is an equality.
func (b *Builder) Filter() *Builder {
	conditions := make([]Condition, 0, len(b.params))
	for key, value := range b.params {
		if IsReserved(key) {
			continue
		}
		field, op := parseKey(key)
		conditions = append(conditions, Condition{Field: field, Op: op, Value: value})
	}
	sort.Slice(conditions, func(i, j int) bool {
		if conditions[i].Field != conditions[j].Field {
			return conditions[i].Field < conditions[j].Field
		}
		return conditions[i].Op < conditions[j].Op
	})

	b.spec.Filters = conditions
	b.steps = append(b.steps, func(q Queryable) Queryable {
		for _, c := range conditions {
			q = q.Where(c.Field, c.Op, c.Value)
		}
		return q
	})
	return b
}

// Sort applies the comma list in sort, "-" meaning descending.
// Without one, newest first.
func (b *Builder) Sort() *Builder {
	fields := parseSort(b.params[KeySort])
	if len(fields) == 0 {
		fields = []SortField{{Field: DefaultSortField, Desc: true}}
	}

	b.spec.Sort = fields
	b.steps = append(b.steps, func(q Queryable) Queryable {
		for _, f := range fields {
			q = q.Order(f.Field, f.Desc)
		}
		return q
	})
	return b
}

// LimitFields projects the comma list in fields. Without one, the handle
// hides its internal fields.
func (b *Builder) LimitFields() *Builder {
	fields := splitList(b.params[KeyFields])

	b.spec.Fields = fields
	b.steps = append(b.steps, func(q Queryable) Queryable {
		if len(fields) == 0 {
			return q.OmitInternal()
		}
		return q.Select(fields...)
	})
	return b
}

// Paginate skips (page-1)*limit items. There is no check against the total:
// a page past the end is simply empty. An offset too large for an int is
// clamped to math.MaxInt, which is still past the end.
func (b *Builder) Paginate() *Builder {
	page := positiveInt(b.params[KeyPage], DefaultPage)
	limit := positiveInt(b.params[KeyLimit], DefaultLimit)
	offset := math.MaxInt
	if page-1 <= math.MaxInt/limit {
		offset = (page - 1) * limit
	}

	b.spec.Offset = offset
	b.spec.Limit = limit
	b.steps = append(b.steps, func(q Queryable) Queryable {
		return q.Offset(offset).Limit(limit)
	})
	return b
}

func (b *Builder) Spec() Spec {
	return b.spec
}

// Query applies the recorded steps in order and returns the shaped handle.
func (b *Builder) Query() Queryable {
	q := b.handle
	for _, step := range b.steps {
		q = step(q)
	}
	return q
}

func parseKey(key string) (string, Operator) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, OpEq
	}
	op := Operator(key[open+1 : len(key)-1])
	if !op.Valid() {
		return key, OpEq
	}
	return key[:open], op
}

func parseSort(raw string) []SortField {
	var fields []SortField
	for _, name := range splitList(raw) {
		desc := strings.HasPrefix(name, "-")
		name = strings.TrimPrefix(name, "-")
		if name == "" {
			continue
		}
		fields = append(fields, SortField{Field: name, Desc: desc})
	}
	return fields
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// positiveInt parses raw, saturating at math.MaxInt for positive values out of range.
func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if errors.Is(err, strconv.ErrRange) && n > 0 {
		return n
	}
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
