package resource

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking-api/internal/domain"
	"tour-booking-api/internal/query"
	appErrors "tour-booking-api/pkg/errors"
)

type widget struct {
	domain.Model
	Name  string  `json:"name" validate:"required,min=3"`
	Price float64 `json:"price" validate:"gte=0"`
	Slug  string  `json:"slug"`
}

// memQuery records what the builder asked for.
type memQuery struct {
	filter  map[string]any
	expand  []string
	wheres  []query.Condition
	orders  []query.SortField
	offset  int
	limit   int
	omitted bool
}

func (q *memQuery) Where(field string, op query.Operator, value string) query.Queryable {
	q.wheres = append(q.wheres, query.Condition{Field: field, Op: op, Value: value})
	return q
}
func (q *memQuery) Order(field string, desc bool) query.Queryable {
	q.orders = append(q.orders, query.SortField{Field: field, Desc: desc})
	return q
}
func (q *memQuery) Select(...string) query.Queryable { return q }
func (q *memQuery) OmitInternal() query.Queryable   { q.omitted = true; return q }
func (q *memQuery) Offset(n int) query.Queryable    { q.offset = n; return q }
func (q *memQuery) Limit(n int) query.Queryable     { q.limit = n; return q }

type memCollection struct {
	items   map[uuid.UUID]*widget
	last    *memQuery
	execs   int
	saveErr error
}

func newMemCollection() *memCollection {
	return &memCollection{items: map[uuid.UUID]*widget{}}
}

func (c *memCollection) Find(filter map[string]any, expand []string) query.Queryable {
	c.last = &memQuery{filter: filter, expand: expand}
	return c.last
}

func (c *memCollection) Exec(_ context.Context, q query.Queryable) ([]*widget, error) {
	c.execs++
	mq := q.(*memQuery)
	var all []*widget
	for _, w := range c.items {
		all = append(all, w)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	if mq.offset >= len(all) {
		return []*widget{}, nil
	}
	end := mq.offset + mq.limit
	if end > len(all) {
		end = len(all)
	}
	return all[mq.offset:end], nil
}

func (c *memCollection) FindByID(_ context.Context, id uuid.UUID, _ []string) (*widget, error) {
	w, ok := c.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (c *memCollection) Create(_ context.Context, item *widget) error {
	item.AssignID()
	c.items[item.ID] = item
	return nil
}

func (c *memCollection) Save(_ context.Context, item *widget) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	if _, ok := c.items[item.ID]; !ok {
		return domain.ErrNotFound
	}
	c.items[item.ID] = item
	return nil
}

func (c *memCollection) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := c.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(c.items, id)
	return nil
}

type recordedEvent struct {
	resource string
	action   Action
	id       uuid.UUID
}

type eventSink struct {
	events []recordedEvent
	err    error
}

func (s *eventSink) Publish(_ context.Context, resource string, action Action, id uuid.UUID) error {
	s.events = append(s.events, recordedEvent{resource, action, id})
	return s.err
}

func TestFactory_CreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	coll := newMemCollection()
	sink := &eventSink{}
	f := NewFactory[widget]("widget", coll, WithEvents[widget](sink))

	created, err := f.Create(ctx, &widget{Name: "Alpha", Price: 10})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	got, err := f.Get(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Name)

	updated, err := f.Update(ctx, created.ID.String(), map[string]any{"price": 25})
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.Price)
	assert.Equal(t, "Alpha", updated.Name, "fields absent from the patch are kept")

	require.NoError(t, f.Delete(ctx, created.ID.String()))
	_, err = f.Get(ctx, created.ID.String())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.Len(t, sink.events, 3)
	assert.Equal(t, ActionCreated, sink.events[0].action)
	assert.Equal(t, ActionUpdated, sink.events[1].action)
	assert.Equal(t, ActionDeleted, sink.events[2].action)
	assert.Equal(t, created.ID, sink.events[2].id)
}

func TestFactory_MissingIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := NewFactory[widget]("widget", newMemCollection())

	for _, id := range []string{uuid.NewString(), "not-a-uuid", ""} {
		_, err := f.Get(ctx, id)
		assert.ErrorIs(t, err, appErrors.ErrNotFound, "get %q", id)

		_, err = f.Update(ctx, id, map[string]any{"name": "Whatever"})
		assert.ErrorIs(t, err, appErrors.ErrNotFound, "update %q", id)

		err = f.Delete(ctx, id)
		assert.ErrorIs(t, err, appErrors.ErrNotFound, "delete %q", id)

		appErr, ok := appErrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, 404, appErr.StatusCode)
	}
}

func TestFactory_CreateValidates(t *testing.T) {
	coll := newMemCollection()
	f := NewFactory[widget]("widget", coll)

	_, err := f.Create(context.Background(), &widget{Name: "A"})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	appErr, _ := appErrors.AsAppError(err)
	assert.Contains(t, appErr.Fields, "name")
	assert.Empty(t, coll.items)
}

func TestFactory_UpdateValidatesMergedResult(t *testing.T) {
	ctx := context.Background()
	coll := newMemCollection()
	f := NewFactory[widget]("widget", coll)

	created, err := f.Create(ctx, &widget{Name: "Alpha", Price: 10})
	require.NoError(t, err)

	_, err = f.Update(ctx, created.ID.String(), map[string]any{"price": -1})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, 10.0, coll.items[created.ID].Price, "stored item untouched")

	_, err = f.Update(ctx, created.ID.String(), map[string]any{"price": "cheap"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestFactory_UpdateIgnoresImmutableKeys(t *testing.T) {
	ctx := context.Background()
	coll := newMemCollection()
	f := NewFactory[widget]("widget", coll)

	created, err := f.Create(ctx, &widget{Name: "Alpha"})
	require.NoError(t, err)

	updated, err := f.Update(ctx, created.ID.String(), map[string]any{
		"id":   uuid.NewString(),
		"name": "Bravo",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Bravo", updated.Name)
}

func TestFactory_Hooks(t *testing.T) {
	ctx := context.Background()
	coll := newMemCollection()
	var after []string

	f := NewFactory[widget]("widget", coll,
		WithBeforeSave[widget](func(_ context.Context, w *widget) error {
			w.Slug = "slug-" + w.Name
			return nil
		}),
		WithAfterWrite[widget](func(_ context.Context, w *widget) error {
			after = append(after, w.Name)
			return errors.New("recompute failed")
		}),
	)

	created, err := f.Create(ctx, &widget{Name: "Alpha"})
	require.NoError(t, err, "after-write failures do not fail the write")
	assert.Equal(t, "slug-Alpha", created.Slug)

	_, err = f.Update(ctx, created.ID.String(), map[string]any{"name": "Bravo"})
	require.NoError(t, err)
	assert.Equal(t, "slug-Bravo", coll.items[created.ID].Slug)

	require.NoError(t, f.Delete(ctx, created.ID.String()))
	assert.Equal(t, []string{"Alpha", "Bravo", "Bravo"}, after)
}

func TestFactory_BeforeSaveErrorAborts(t *testing.T) {
	coll := newMemCollection()
	boom := errors.New("boom")
	f := NewFactory[widget]("widget", coll, WithBeforeSave[widget](func(context.Context, *widget) error {
		return boom
	}))

	_, err := f.Create(context.Background(), &widget{Name: "Alpha"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, coll.items)
}

func TestFactory_List(t *testing.T) {
	ctx := context.Background()
	coll := newMemCollection()
	f := NewFactory[widget]("widget", coll, WithExpand[widget]("Parts"), WithListExpand[widget]("owner"))

	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta"} {
		_, err := f.Create(ctx, &widget{Name: name})
		require.NoError(t, err)
	}

	items, count, err := f.List(ctx, query.Params{
		"page":   "2",
		"limit":  "3",
		"price":  "0",
		"expand": "parts,secrets",
	}, map[string]any{"tour": "t1"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, items, 1)
	assert.Equal(t, "Delta", items[0].Name)

	assert.Equal(t, 1, coll.execs)
	assert.Equal(t, map[string]any{"tour": "t1"}, coll.last.filter)
	assert.Equal(t, []string{"owner", "Parts"}, coll.last.expand)
	assert.Equal(t, []query.Condition{{Field: "price", Op: query.OpEq, Value: "0"}}, coll.last.wheres)
	assert.Equal(t, []query.SortField{{Field: "createdAt", Desc: true}}, coll.last.orders)
	assert.True(t, coll.last.omitted)
	assert.Equal(t, 3, coll.last.offset)
}

func TestFactory_ListPastTheEndIsEmpty(t *testing.T) {
	coll := newMemCollection()
	f := NewFactory[widget]("widget", coll)

	items, count, err := f.List(context.Background(), query.Params{"page": "3", "limit": "10"}, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, count)
	assert.Equal(t, 20, coll.last.offset)
	assert.NotNil(t, coll.last.filter)
}

func TestFactory_SaveErrorPassesThrough(t *testing.T) {
	ctx := context.Background()
	coll := newMemCollection()
	f := NewFactory[widget]("widget", coll)

	created, err := f.Create(ctx, &widget{Name: "Alpha"})
	require.NoError(t, err)

	coll.saveErr = appErrors.ErrDuplicate
	_, err = f.Update(ctx, created.ID.String(), map[string]any{"name": "Bravo"})
	assert.ErrorIs(t, err, appErrors.ErrDuplicate)
}

func TestFactory_PublishFailureDoesNotFailWrite(t *testing.T) {
	sink := &eventSink{err: errors.New("broker down")}
	f := NewFactory[widget]("widget", newMemCollection(), WithEvents[widget](sink))

	created, err := f.Create(context.Background(), &widget{Name: "Alpha", Price: 10})
	require.NoError(t, err)
	assert.NotNil(t, created)
	assert.Len(t, sink.events, 1)
}

func TestFactory_CreateFromIgnoresImmutableKeys(t *testing.T) {
	f := NewFactory[widget]("widget", newMemCollection())
	forced := uuid.New()

	created, err := f.CreateFrom(context.Background(), map[string]any{
		"id":    forced.String(),
		"name":  "Gamma",
		"price": 3.5,
	})
	require.NoError(t, err)
	assert.NotEqual(t, forced, created.ID)
	assert.Equal(t, "Gamma", created.Name)

	_, err = f.CreateFrom(context.Background(), map[string]any{"name": "Delta", "price": "cheap"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
