package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainReview "tour-booking-api/internal/domain/review"
	domainUser "tour-booking-api/internal/domain/user"
	"tour-booking-api/internal/middleware"
	appErrors "tour-booking-api/pkg/errors"
)

type ReviewHandler struct {
	reviews *ResourceHandler[domainReview.Review]
}

func NewReviewHandler(reviews *ResourceHandler[domainReview.Review]) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// RegisterRoutes mounts /reviews and the nested /tours/:id/reviews. Every
// review route needs a session.
func (h *ReviewHandler) RegisterRoutes(router *gin.RouterGroup, authenticate gin.HandlerFunc) {
	reviewers := middleware.RequireRoles(domainUser.RoleUser)
	owners := middleware.RequireRoles(domainUser.RoleUser, domainUser.RoleAdmin)

	for _, base := range []string{"/reviews", "/tours/:id/reviews"} {
		group := router.Group(base, authenticate)
		group.GET("", h.reviews.List)
		group.POST("", reviewers, h.reviews.Create)
	}

	reviews := router.Group("/reviews", authenticate)
	{
		reviews.GET("/:id", h.reviews.Get)
		reviews.PATCH("/:id", owners, h.reviews.Update)
		reviews.DELETE("/:id", owners, h.reviews.Delete)
	}
}

// ReviewScope limits a nested list to the tour in the path.
func ReviewScope(c *gin.Context) (map[string]any, error) {
	raw := c.Param("id")
	if raw == "" {
		return nil, nil
	}
	tourID, err := uuid.Parse(raw)
	if err != nil {
		return nil, appErrors.NotFound("tour", raw)
	}
	return map[string]any{"tour": tourID}, nil
}

// FillReviewRefs defaults the reviewed tour to the one in the path and the
// author to the principal.
func FillReviewRefs(c *gin.Context, payload map[string]any) error {
	if _, ok := payload["tour"]; !ok {
		if raw := c.Param("id"); raw != "" {
			if _, err := uuid.Parse(raw); err != nil {
				return appErrors.NotFound("tour", raw)
			}
			payload["tour"] = raw
		}
	}
	if _, ok := payload["user"]; !ok {
		if principal := middleware.Principal(c); principal != nil {
			payload["user"] = principal.ID.String()
		}
	}
	return nil
}

// ProtectReviewRefs keeps an update from moving a review to another tour or author.
func ProtectReviewRefs(_ *gin.Context, payload map[string]any) error {
	delete(payload, "tour")
	delete(payload, "user")
	return nil
}
