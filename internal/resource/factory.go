// Package resource builds the five uniform CRUD operations over any
// collection. A Factory holds no per-request state and is built once per
// resource at startup.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tour-booking-api/internal/domain"
	"tour-booking-api/internal/logger"
	"tour-booking-api/internal/query"
	appErrors "tour-booking-api/pkg/errors"
	"tour-booking-api/pkg/utils"
)

// Collection is the storage a Factory drives. Lookups by id return
// domain.ErrNotFound when nothing matches.
type Collection[T any] interface {
	// Find starts a list query scoped by filter (API field names) with the
	// given relations expanded.
	Find(filter map[string]any, expand []string) query.Queryable
	// Exec runs a query started by Find, exactly once.
	Exec(ctx context.Context, q query.Queryable) ([]*T, error)
	FindByID(ctx context.Context, id uuid.UUID, expand []string) (*T, error)
	Create(ctx context.Context, item *T) error
	Save(ctx context.Context, item *T) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// EventPublisher is told about every successful write. A publish failure
// never fails the write.
type EventPublisher interface {
	Publish(ctx context.Context, resource string, action Action, id uuid.UUID) error
}

// Hook runs against an item around a write.
type Hook[T any] func(ctx context.Context, item *T) error

// immutableKeys are never taken from an update payload.
var immutableKeys = []string{"id", "createdAt", "updatedAt"}

type Factory[T any] struct {
	name       string
	collection Collection[T]
	expand     map[string]string
	getExpand  []string
	listExpand []string
	beforeSave []Hook[T]
	afterWrite []Hook[T]
	events     EventPublisher
}

type Option[T any] func(*Factory[T])

// WithExpand expands relations on Get. They may also be requested on List
// through the expand parameter, matched without regard to case.
func WithExpand[T any](relations ...string) Option[T] {
	return func(f *Factory[T]) {
		f.getExpand = append(f.getExpand, relations...)
		for _, r := range relations {
			f.expand[strings.ToLower(r)] = r
		}
	}
}

// WithListExpand always expands relations on List and Get.
func WithListExpand[T any](relations ...string) Option[T] {
	return func(f *Factory[T]) {
		f.listExpand = append(f.listExpand, relations...)
		f.getExpand = append(f.getExpand, relations...)
	}
}

// WithBeforeSave derives fields before every create and update. A hook error aborts the write.
func WithBeforeSave[T any](hooks ...Hook[T]) Option[T] {
	return func(f *Factory[T]) {
		f.beforeSave = append(f.beforeSave, hooks...)
	}
}

// WithAfterWrite runs follow-up work after a successful create, update or delete.
// The write is not rolled back when a hook fails; the failure is only logged.
func WithAfterWrite[T any](hooks ...Hook[T]) Option[T] {
	return func(f *Factory[T]) {
		f.afterWrite = append(f.afterWrite, hooks...)
	}
}

func WithEvents[T any](publisher EventPublisher) Option[T] {
	return func(f *Factory[T]) {
		f.events = publisher
	}
}

func NewFactory[T any](name string, collection Collection[T], opts ...Option[T]) *Factory[T] {
	f := &Factory[T]{
		name:       name,
		collection: collection,
		expand:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory[T]) Name() string {
	return f.name
}

// List runs filter, sort, projection and pagination over the collection
// scoped by parentFilter, and returns the page with its size.
func (f *Factory[T]) List(ctx context.Context, params query.Params, parentFilter map[string]any) ([]*T, int, error) {
	if parentFilter == nil {
		parentFilter = map[string]any{}
	}

	handle := f.collection.Find(parentFilter, f.listRelations(params[query.KeyExpand]))
	q := query.New(handle, params).
		Filter().
		Sort().
		LimitFields().
		Paginate().
		Query()

	items, err := f.collection.Exec(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return items, len(items), nil
}

func (f *Factory[T]) Get(ctx context.Context, id string) (*T, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, appErrors.NotFound(f.name, id)
	}

	item, err := f.collection.FindByID(ctx, uid, f.getExpand)
	if err != nil {
		return nil, f.translate(err, id)
	}
	return item, nil
}

// Create validates item and inserts it; the store assigns the id.
func (f *Factory[T]) Create(ctx context.Context, item *T) (*T, error) {
	if err := f.prepare(ctx, item); err != nil {
		return nil, err
	}

	if err := f.collection.Create(ctx, item); err != nil {
		return nil, err
	}

	f.written(ctx, item, ActionCreated)
	return item, nil
}

// CreateFrom decodes a JSON body into a new item and creates it. Keys a
// client may never set are ignored.
func (f *Factory[T]) CreateFrom(ctx context.Context, payload map[string]any) (*T, error) {
	item := new(T)
	if err := merge(item, payload); err != nil {
		return nil, err
	}
	return f.Create(ctx, item)
}

// Update merges patch onto the stored item and validates the merged result
// before saving it.
func (f *Factory[T]) Update(ctx context.Context, id string, patch map[string]any) (*T, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, appErrors.NotFound(f.name, id)
	}

	item, err := f.collection.FindByID(ctx, uid, nil)
	if err != nil {
		return nil, f.translate(err, id)
	}

	if err := merge(item, patch); err != nil {
		return nil, err
	}

	if err := f.prepare(ctx, item); err != nil {
		return nil, err
	}

	if err := f.collection.Save(ctx, item); err != nil {
		return nil, f.translate(err, id)
	}

	f.written(ctx, item, ActionUpdated)
	return item, nil
}

func (f *Factory[T]) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return appErrors.NotFound(f.name, id)
	}

	// After-write hooks need the deleted item.
	var item *T
	if len(f.afterWrite) > 0 {
		item, err = f.collection.FindByID(ctx, uid, nil)
		if err != nil {
			return f.translate(err, id)
		}
	}

	if err := f.collection.Delete(ctx, uid); err != nil {
		return f.translate(err, id)
	}

	if item != nil {
		f.written(ctx, item, ActionDeleted)
	} else {
		f.publish(ctx, ActionDeleted, uid)
	}
	return nil
}

func (f *Factory[T]) prepare(ctx context.Context, item *T) error {
	for _, hook := range f.beforeSave {
		if err := hook(ctx, item); err != nil {
			return err
		}
	}
	return utils.ValidateStruct(item)
}

func (f *Factory[T]) written(ctx context.Context, item *T, action Action) {
	for _, hook := range f.afterWrite {
		if err := hook(ctx, item); err != nil {
			logger.Warn("After-write step failed",
				zap.String("resource", f.name),
				zap.String("action", string(action)),
				zap.Error(err),
				zap.String("event", "resource_after_write_failed"),
			)
		}
	}

	if identified, ok := any(item).(interface{ GetID() uuid.UUID }); ok {
		f.publish(ctx, action, identified.GetID())
	}
}

func (f *Factory[T]) publish(ctx context.Context, action Action, id uuid.UUID) {
	if f.events == nil {
		return
	}
	if err := f.events.Publish(ctx, f.name, action, id); err != nil {
		logger.Warn("Event publish failed",
			zap.String("resource", f.name),
			zap.String("action", string(action)),
			zap.Error(err),
			zap.String("event", "resource_event_failed"),
		)
	}
}

func (f *Factory[T]) listRelations(requested string) []string {
	relations := append([]string(nil), f.listExpand...)
	for _, r := range splitComma(requested) {
		if name, ok := f.expand[strings.ToLower(r)]; ok {
			relations = append(relations, name)
		}
	}
	return relations
}

func (f *Factory[T]) translate(err error, id string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return appErrors.NotFound(f.name, id)
	}
	return err
}

// merge overlays patch onto item the way a JSON body would, ignoring the
// keys a client may never change.
func merge[T any](item *T, patch map[string]any) error {
	clean := make(map[string]any, len(patch))
	for k, v := range patch {
		clean[k] = v
	}
	for _, k := range immutableKeys {
		delete(clean, k)
	}

	raw, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("failed to encode update: %w", err)
	}

	if err := json.Unmarshal(raw, item); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return appErrors.NewValidationError(map[string][]string{
				typeErr.Field: {fmt.Sprintf("must be a %s", typeErr.Type.Kind())},
			})
		}
		return appErrors.ErrValidation.Wrap(err)
	}
	return nil
}

func splitComma(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
