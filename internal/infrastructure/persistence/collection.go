// Package persistence stores the domain in a SQL database through gorm.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tour-booking-api/internal/domain"
	"tour-booking-api/internal/query"
	"tour-booking-api/internal/resource"
	appErrors "tour-booking-api/pkg/errors"
)

// Scope narrows every read of a collection.
type Scope func(*gorm.DB) *gorm.DB

type relation struct {
	name    string
	columns []string
}

// Collection is a gorm table seen as a resource.Collection.
type Collection[T any] struct {
	db         *gorm.DB
	fields     fieldMap
	scopes     []Scope
	internal   []string
	keys       []string
	relations  map[string]relation
	softDelete string
	cascade    bool
}

var _ resource.Collection[domain.Model] = (*Collection[domain.Model])(nil)

type CollectionOption[T any] func(*Collection[T])

// WithScope hides rows from every read, for example inactive accounts.
func WithScope[T any](scope Scope) CollectionOption[T] {
	return func(c *Collection[T]) {
		c.scopes = append(c.scopes, scope)
	}
}

// WithInternalColumns are left out of list results unless projected explicitly
// and are never written by Save.
func WithInternalColumns[T any](columns ...string) CollectionOption[T] {
	return func(c *Collection[T]) {
		c.internal = append(c.internal, columns...)
	}
}

// WithKeyColumns are always selected, so a projection still resolves relations.
func WithKeyColumns[T any](columns ...string) CollectionOption[T] {
	return func(c *Collection[T]) {
		c.keys = append(c.keys, columns...)
	}
}

// WithRelation makes a relation expandable by name. Columns, when given,
// limit what is loaded of the related rows.
func WithRelation[T any](name string, columns ...string) CollectionOption[T] {
	return func(c *Collection[T]) {
		c.relations[name] = relation{name: name, columns: columns}
	}
}

// WithSoftDelete turns Delete into clearing a boolean column.
func WithSoftDelete[T any](column string) CollectionOption[T] {
	return func(c *Collection[T]) {
		c.softDelete = column
	}
}

// WithCascade deletes owned associations together with the row.
func WithCascade[T any]() CollectionOption[T] {
	return func(c *Collection[T]) {
		c.cascade = true
	}
}

func NewCollection[T any](db *gorm.DB, opts ...CollectionOption[T]) (*Collection[T], error) {
	var model T
	fields, err := buildFieldMap(db, &model)
	if err != nil {
		return nil, err
	}

	c := &Collection[T]{
		db:        db,
		fields:    fields,
		keys:      []string{"id"},
		relations: make(map[string]relation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Collection[T]) base(ctx context.Context) *gorm.DB {
	var model T
	tx := c.db.WithContext(ctx).Model(&model)
	for _, scope := range c.scopes {
		tx = scope(tx)
	}
	return tx
}

func (c *Collection[T]) expand(tx *gorm.DB, names []string) *gorm.DB {
	for _, name := range names {
		rel, ok := c.relations[name]
		if !ok {
			continue
		}
		if len(rel.columns) == 0 {
			tx = tx.Preload(rel.name)
			continue
		}
		columns := rel.columns
		tx = tx.Preload(rel.name, func(db *gorm.DB) *gorm.DB {
			return db.Select(columns)
		})
	}
	return tx
}

func (c *Collection[T]) Find(filter map[string]any, expand []string) query.Queryable {
	q := newQuery(c.expand(c.base(context.Background()), expand), c.fields, c.internal, c.keys)
	for field, value := range filter {
		q.WhereValue(field, value)
	}
	return q
}

func (c *Collection[T]) Exec(ctx context.Context, handle query.Queryable) ([]*T, error) {
	q, ok := handle.(*Query)
	if !ok {
		return nil, fmt.Errorf("unsupported query handle %T", handle)
	}
	if err := q.Err(); err != nil {
		return nil, err
	}

	items := make([]*T, 0)
	if err := q.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return items, nil
}

func (c *Collection[T]) FindByID(ctx context.Context, id uuid.UUID, expand []string) (*T, error) {
	var item T
	err := c.expand(c.base(ctx), expand).
		Where(clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: "id"}, Value: id}).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &item, nil
}

func (c *Collection[T]) Create(ctx context.Context, item *T) error {
	if identified, ok := any(item).(interface{ AssignID() }); ok {
		identified.AssignID()
	}
	if err := c.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error; err != nil {
		return translate(err, "create")
	}
	return nil
}

// Save writes every column except the internal ones, which only their own
// store methods change.
func (c *Collection[T]) Save(ctx context.Context, item *T) error {
	omit := append([]string{clause.Associations}, c.internal...)
	if err := c.db.WithContext(ctx).Omit(omit...).Save(item).Error; err != nil {
		return translate(err, "save")
	}
	return nil
}

func (c *Collection[T]) Delete(ctx context.Context, id uuid.UUID) error {
	var model T
	var result *gorm.DB
	switch {
	case c.softDelete != "":
		result = c.base(ctx).
			Where(clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: "id"}, Value: id}).
			Update(c.softDelete, false)
	case c.cascade:
		if identified, ok := any(&model).(interface{ SetID(uuid.UUID) }); ok {
			identified.SetID(id)
			result = c.db.WithContext(ctx).Select(clause.Associations).Delete(&model)
			break
		}
		fallthrough
	default:
		result = c.db.WithContext(ctx).Delete(&model, "id = ?", id)
	}

	if result.Error != nil {
		return translate(result.Error, "delete")
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DB exposes the underlying handle to stores built on top of a collection.
func (c *Collection[T]) DB() *gorm.DB {
	return c.db
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return appErrors.ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return appErrors.ErrValidation.WithMessage("Referenced record does not exist")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	}
	return fmt.Errorf("failed to %s record: %w", op, err)
}
