package routes

import (
	"net/http"

	"lxcloud/internal/broadcast"
	"lxcloud/internal/config"
	"lxcloud/internal/delivery/http/handler"
	"lxcloud/internal/devauth"
	"lxcloud/internal/domain/registry"
	"lxcloud/internal/domain/telemetry"
	domainUser "lxcloud/internal/domain/user"
	"lxcloud/internal/logger"
	"lxcloud/internal/middleware"
	"lxcloud/internal/usecase/assignment"
	"lxcloud/internal/usecase/ingestion"
	"lxcloud/internal/usecase/screen"
	"lxcloud/internal/usecase/user"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies carries the wired storage and fan-out components into the
// router, so the same assembly serves both the postgres and the
// in-memory backend.
type Dependencies struct {
	RegistryRepo  registry.Repository
	TelemetryRepo telemetry.Repository
	UserRepo      domainUser.Repository
	Hub           *broadcast.Hub
	Publisher     broadcast.Publisher
	HealthCheck   func() error
}

func SetupRoutes(cfg *config.Config, deps *Dependencies) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware order: recovery, request ID, logging, security headers,
	// CORS, request size limit, general rate limit.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))
	if cfg.RateLimit.GeneralRPS > 0 {
		router.Use(middleware.RateLimitMiddleware(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst))
	}

	router.GET("/health", func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"message": "Storage connection failed",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Service is running",
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := devauth.New(cfg.DeviceAuth.KeyPrefix)

	ingestionService := ingestion.NewService(deps.RegistryRepo, deps.TelemetryRepo, deps.Publisher, auth, cfg.DeviceAuth.RequireUpdateKey)
	deviceHandler := handler.NewDeviceHandler(ingestionService)

	assignmentService := assignment.NewService(deps.RegistryRepo, cfg.Assignment.AllowUnseenClaim)
	screenService := screen.NewService(deps.RegistryRepo, deps.TelemetryRepo)
	screenHandler := handler.NewScreenHandler(assignmentService, screenService)

	userService := user.NewService(deps.UserRepo, &cfg.JWT)
	authHandler := handler.NewAuthHandler(userService)

	wsHandler := handler.NewWSHandler(deps.Hub, cfg)

	v1 := router.Group("/api/v1")
	{
		// Device endpoints authenticate with the derived key scheme, not
		// operator tokens.
		deviceHandler.RegisterRoutes(v1)
		authHandler.RegisterRoutes(v1)
		wsHandler.RegisterRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			authHandler.RegisterProfileRoutes(protected)
			screenHandler.RegisterRoutes(protected)

			admin := protected.Group("/admin")
			admin.Use(middleware.AdminOnly())
			{
				screenHandler.RegisterAdminRoutes(admin)
			}
		}
	}

	logger.Info("All routes initialized")
	return router
}
