package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainTour "tour-booking-api/internal/domain/tour"
	domainUser "tour-booking-api/internal/domain/user"
	"tour-booking-api/internal/middleware"
	"tour-booking-api/internal/query"
	"tour-booking-api/internal/usecase/tour"
	appErrors "tour-booking-api/pkg/errors"
	"tour-booking-api/pkg/utils"
)

type TourHandler struct {
	tours   *ResourceHandler[domainTour.Tour]
	reports *tour.ReportService
}

func NewTourHandler(tours *ResourceHandler[domainTour.Tour], reports *tour.ReportService) *TourHandler {
	return &TourHandler{tours: tours, reports: reports}
}

// RegisterRoutes mounts /tours. Reviews of a tour are mounted separately by
// ReviewHandler under /tours/:id/reviews.
func (h *TourHandler) RegisterRoutes(router *gin.RouterGroup, authenticate gin.HandlerFunc) {
	tours := router.Group("/tours")
	{
		tours.GET("", h.tours.List)
		tours.GET("/top-5-cheap", AliasTopTours, h.tours.List)
		tours.GET("/tour-stats", h.Stats)
		tours.GET("/:id", h.tours.Get)
	}

	planners := tours.Group("", authenticate,
		middleware.RequireRoles(domainUser.RoleAdmin, domainUser.RoleLeadGuide, domainUser.RoleGuide))
	planners.GET("/monthly-plan/:year", h.MonthlyPlan)

	editors := tours.Group("", authenticate, middleware.RequireRoles(domainUser.RoleAdmin, domainUser.RoleLeadGuide))
	{
		editors.POST("", h.tours.Create)
		editors.PATCH("/:id", h.tours.Update)
		editors.DELETE("/:id", h.tours.Delete)
	}
}

// AliasTopTours presets the query of the five best rated cheap tours.
func AliasTopTours(c *gin.Context) {
	values := c.Request.URL.Query()
	values.Set(query.KeyLimit, "5")
	values.Set(query.KeySort, "-ratingsAverage,price")
	values.Set(query.KeyFields, "name,price,ratingsAverage,summary,difficulty")
	c.Request.URL.RawQuery = values.Encode()
	c.Next()
}

func (h *TourHandler) Stats(c *gin.Context) {
	stats, err := h.reports.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, gin.H{"stats": stats})
}

func (h *TourHandler) MonthlyPlan(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		fail(c, appErrors.NewValidationError(map[string][]string{"year": {"must be a number"}}))
		return
	}

	plan, err := h.reports.MonthlyPlan(c.Request.Context(), year)
	if err != nil {
		fail(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, gin.H{"plan": plan})
}

// NormalizeGuides accepts guides given as plain ids and rewrites them to the
// object form the tour decodes.
func NormalizeGuides(_ *gin.Context, payload map[string]any) error {
	raw, ok := payload["guides"]
	if !ok || raw == nil {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return appErrors.NewValidationError(map[string][]string{"guides": {"must be a list of user ids"}})
	}

	guides := make([]any, 0, len(list))
	for _, g := range list {
		switch v := g.(type) {
		case string:
			guides = append(guides, map[string]any{"id": v})
		case map[string]any:
			guides = append(guides, map[string]any{"id": v["id"]})
		default:
			return appErrors.NewValidationError(map[string][]string{"guides": {"must be a list of user ids"}})
		}
	}
	payload["guides"] = guides
	return nil
}
