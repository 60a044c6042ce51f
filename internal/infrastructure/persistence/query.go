package persistence

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tour-booking-api/internal/query"
	appErrors "tour-booking-api/pkg/errors"
)

// Query is the gorm side of query.Queryable. Unknown fields and bad values
// are collected and reported as one validation error when the query runs.
type Query struct {
	db       *gorm.DB
	fields   fieldMap
	internal []string
	keys     []string
	invalid  map[string][]string
}

var _ query.Queryable = (*Query)(nil)

func newQuery(db *gorm.DB, fields fieldMap, internal, keys []string) *Query {
	return &Query{
		db:       db,
		fields:   fields,
		internal: internal,
		keys:     keys,
		invalid:  make(map[string][]string),
	}
}

func (q *Query) Where(field string, op query.Operator, value string) query.Queryable {
	f, ok := q.lookup(field)
	if !ok {
		return q
	}
	v, err := f.convert(value)
	if err != nil {
		q.reject(field, fmt.Sprintf("%s %s", field, err.Error()))
		return q
	}

	col := clause.Column{Table: clause.CurrentTable, Name: f.column}
	var expr clause.Expression
	switch op {
	case query.OpGt:
		expr = clause.Gt{Column: col, Value: v}
	case query.OpGte:
		expr = clause.Gte{Column: col, Value: v}
	case query.OpLt:
		expr = clause.Lt{Column: col, Value: v}
	case query.OpLte:
		expr = clause.Lte{Column: col, Value: v}
	default:
		expr = clause.Eq{Column: col, Value: v}
	}
	q.db = q.db.Where(expr)
	return q
}

// WhereValue adds an equality on an already typed value.
func (q *Query) WhereValue(field string, value interface{}) *Query {
	f, ok := q.lookup(field)
	if !ok {
		return q
	}
	q.db = q.db.Where(clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: f.column}, Value: value})
	return q
}

func (q *Query) Order(field string, desc bool) query.Queryable {
	f, ok := q.lookup(field)
	if !ok {
		return q
	}
	q.db = q.db.Order(clause.OrderByColumn{
		Column: clause.Column{Table: clause.CurrentTable, Name: f.column},
		Desc:   desc,
	})
	return q
}

// Select projects fields. Key columns are always kept so relations still resolve.
func (q *Query) Select(fields ...string) query.Queryable {
	columns := append([]string(nil), q.keys...)
	for _, field := range fields {
		f, ok := q.fields[field]
		if !ok {
			q.reject(field, fmt.Sprintf("unknown field %s", field))
			continue
		}
		columns = append(columns, f.column)
	}
	q.db = q.db.Select(columns)
	return q
}

func (q *Query) OmitInternal() query.Queryable {
	if len(q.internal) > 0 {
		q.db = q.db.Omit(q.internal...)
	}
	return q
}

func (q *Query) Offset(n int) query.Queryable {
	q.db = q.db.Offset(n)
	return q
}

func (q *Query) Limit(n int) query.Queryable {
	q.db = q.db.Limit(n)
	return q
}

// Err is the validation error collected while shaping, or nil.
func (q *Query) Err() error {
	if len(q.invalid) == 0 {
		return nil
	}
	return appErrors.NewValidationError(q.invalid)
}

func (q *Query) lookup(field string) (apiField, bool) {
	f, ok := q.fields[field]
	if !ok {
		q.reject(field, fmt.Sprintf("unknown field %s", field))
		return apiField{}, false
	}
	if !f.queryable {
		q.reject(field, fmt.Sprintf("%s cannot be queried", field))
		return apiField{}, false
	}
	return f, true
}

func (q *Query) reject(field, message string) {
	q.invalid[field] = append(q.invalid[field], message)
}
