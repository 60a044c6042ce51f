package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tour-booking-api/internal/resource"
	"tour-booking-api/pkg/utils"
)

// ScopeFunc derives the parent filter of a nested list, e.g. the tour of
// /tours/:id/reviews. It may fail on a malformed parent id.
type ScopeFunc func(c *gin.Context) (map[string]any, error)

// PayloadFunc adjusts a decoded body before it reaches the factory.
type PayloadFunc func(c *gin.Context, payload map[string]any) error

// ResourceHandler exposes a resource.Factory as the five REST endpoints.
type ResourceHandler[T any] struct {
	factory  *resource.Factory[T]
	scope    ScopeFunc
	onCreate []PayloadFunc
	onUpdate []PayloadFunc
}

type ResourceOption[T any] func(*ResourceHandler[T])

func WithScope[T any](scope ScopeFunc) ResourceOption[T] {
	return func(h *ResourceHandler[T]) {
		h.scope = scope
	}
}

// WithPayload runs fns on both create and update bodies.
func WithPayload[T any](fns ...PayloadFunc) ResourceOption[T] {
	return func(h *ResourceHandler[T]) {
		h.onCreate = append(h.onCreate, fns...)
		h.onUpdate = append(h.onUpdate, fns...)
	}
}

func WithCreatePayload[T any](fns ...PayloadFunc) ResourceOption[T] {
	return func(h *ResourceHandler[T]) {
		h.onCreate = append(h.onCreate, fns...)
	}
}

func WithUpdatePayload[T any](fns ...PayloadFunc) ResourceOption[T] {
	return func(h *ResourceHandler[T]) {
		h.onUpdate = append(h.onUpdate, fns...)
	}
}

func NewResourceHandler[T any](factory *resource.Factory[T], opts ...ResourceOption[T]) *ResourceHandler[T] {
	h := &ResourceHandler[T]{factory: factory}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ResourceHandler[T]) List(c *gin.Context) {
	var parent map[string]any
	if h.scope != nil {
		var err error
		if parent, err = h.scope(c); err != nil {
			fail(c, err)
			return
		}
	}

	items, count, err := h.factory.List(c.Request.Context(), queryParams(c), parent)
	if err != nil {
		fail(c, err)
		return
	}

	utils.ListResponse(c, http.StatusOK, count, gin.H{"data": items})
}

func (h *ResourceHandler[T]) Get(c *gin.Context) {
	item, err := h.factory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, gin.H{"data": item})
}

func (h *ResourceHandler[T]) Create(c *gin.Context) {
	payload, err := bindPayload(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.apply(c, payload, h.onCreate); err != nil {
		fail(c, err)
		return
	}

	item, err := h.factory.CreateFrom(c.Request.Context(), payload)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, gin.H{"data": item})
}

func (h *ResourceHandler[T]) Update(c *gin.Context) {
	payload, err := bindPayload(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.apply(c, payload, h.onUpdate); err != nil {
		fail(c, err)
		return
	}

	item, err := h.factory.Update(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, gin.H{"data": item})
}

func (h *ResourceHandler[T]) Delete(c *gin.Context) {
	if err := h.factory.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ResourceHandler[T]) apply(c *gin.Context, payload map[string]any, fns []PayloadFunc) error {
	for _, fn := range fns {
		if err := fn(c, payload); err != nil {
			return err
		}
	}
	return nil
}
