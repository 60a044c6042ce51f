package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tour-booking-api/internal/auth"
	"tour-booking-api/internal/cache"
	"tour-booking-api/internal/config"
	"tour-booking-api/internal/delivery/http/handler"
	domainReview "tour-booking-api/internal/domain/review"
	domainTour "tour-booking-api/internal/domain/tour"
	domainUser "tour-booking-api/internal/domain/user"
	"tour-booking-api/internal/infrastructure/persistence"
	"tour-booking-api/internal/logger"
	"tour-booking-api/internal/middleware"
	"tour-booking-api/internal/resource"
	"tour-booking-api/internal/usecase/tour"
	"tour-booking-api/internal/usecase/user"
	"tour-booking-api/pkg/utils"
)

// Dependencies are the connections the router wires into the services.
// Cache and Events may be disabled implementations; Metrics may be nil.
type Dependencies struct {
	DB       *gorm.DB
	Cache    *cache.Cache
	Events   resource.EventPublisher
	Notifier user.Notifier
	Hasher   utils.PasswordHasher
	Metrics  http.Handler
	Health   func() error
}

// App is the assembled API.
type App struct {
	Router *gin.Engine
	Users  *user.Service
}

// SetupRoutes builds every service and mounts the API under /api/v1.
// Background work started here stops when ctx is done.
func SetupRoutes(ctx context.Context, cfg *config.Config, deps Dependencies) (*App, error) {
	if cfg.Server.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	env := cfg.Server.Environment
	limiter := middleware.NewRateLimiter(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst)
	limiter.StartCleanup(ctx.Done(), 10*time.Minute)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.Recovery(env))
	router.Use(middleware.ErrorHandler(env))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.NoRoute(middleware.NoRoute)

	router.GET("/health", func(c *gin.Context) {
		if deps.Health != nil {
			if err := deps.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"message": "Database connection failed",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Service is running",
		})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	hasher := deps.Hasher
	if hasher == nil {
		hasher = utils.NewBcryptHasher(cfg.Auth.BcryptCost)
	}
	sessions := auth.NewSessionTokens(cfg.JWT.Secret, cfg.JWT.TTL())
	resets := auth.NewResetTokens(cfg.Auth.ResetTokenTTL())
	userService := user.NewService(persistence.NewUserRepository(deps.DB), hasher, sessions, resets, deps.Notifier)

	userCollection, err := persistence.NewUserCollection(deps.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to build user collection: %w", err)
	}
	tourStore, err := persistence.NewTourStore(deps.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to build tour store: %w", err)
	}
	reviewCollection, err := persistence.NewReviewCollection(deps.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to build review collection: %w", err)
	}

	reports := tour.NewReportService(tourStore, deps.Cache)

	users := resource.NewFactory[domainUser.User]("user", userCollection,
		resource.WithEvents[domainUser.User](deps.Events),
	)
	tours := resource.NewFactory[domainTour.Tour]("tour", tourStore,
		resource.WithListExpand[domainTour.Tour]("Guides"),
		resource.WithExpand[domainTour.Tour]("Reviews", "Reviews.Author"),
		resource.WithBeforeSave[domainTour.Tour](tour.DeriveFields),
		resource.WithAfterWrite[domainTour.Tour](tour.InvalidateReports(reports)),
		resource.WithEvents[domainTour.Tour](deps.Events),
	)
	reviews := resource.NewFactory[domainReview.Review]("review", reviewCollection,
		resource.WithListExpand[domainReview.Review]("Author"),
		resource.WithAfterWrite[domainReview.Review](tour.RefreshRatings(persistence.NewRatingStore(deps.DB), reports)),
		resource.WithEvents[domainReview.Review](deps.Events),
	)

	userHandler := handler.NewUserHandler(userService,
		handler.NewResourceHandler(users, handler.WithUpdatePayload[domainUser.User](handler.NormalizeUserPayload)),
		handler.SessionCookie{TTL: cfg.JWT.TTL(), Secure: cfg.Server.Environment == config.EnvProduction},
	)
	tourHandler := handler.NewTourHandler(
		handler.NewResourceHandler(tours, handler.WithPayload[domainTour.Tour](handler.NormalizeGuides)),
		reports,
	)
	reviewHandler := handler.NewReviewHandler(handler.NewResourceHandler(reviews,
		handler.WithScope[domainReview.Review](handler.ReviewScope),
		handler.WithCreatePayload[domainReview.Review](handler.FillReviewRefs),
		handler.WithUpdatePayload[domainReview.Review](handler.ProtectReviewRefs),
	))

	authenticate := middleware.Authenticate(userService)

	v1 := router.Group("/api/v1")
	v1.Use(limiter.Middleware())
	v1.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))
	{
		userHandler.RegisterRoutes(v1, authenticate)
		tourHandler.RegisterRoutes(v1, authenticate)
		reviewHandler.RegisterRoutes(v1, authenticate)
	}

	logger.Info("All routes initialized")
	return &App{Router: router, Users: userService}, nil
}
