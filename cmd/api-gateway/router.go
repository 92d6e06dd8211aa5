package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/mentor-scheduling-api/api/swagger"
	"github.com/noah-isme/mentor-scheduling-api/internal/handler"
	"github.com/noah-isme/mentor-scheduling-api/internal/middleware"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	"github.com/noah-isme/mentor-scheduling-api/internal/service"
	"github.com/noah-isme/mentor-scheduling-api/pkg/config"
	"github.com/noah-isme/mentor-scheduling-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/mentor-scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mentor-scheduling-api/pkg/middleware/requestid"
)

type routerDeps struct {
	tokens       middleware.TokenValidator
	metrics      *service.MetricsService
	health       *handler.HealthHandler
	slots        *handler.SlotHandler
	availability *handler.AvailabilityHandler
	timeBlocks   *handler.TimeBlockHandler
	bookings     *handler.BookingHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", deps.health.Health)
	r.GET("/ready", deps.health.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", deps.health.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	auth := middleware.JWT(deps.tokens)

	api.GET("/tutors/:id/slots", deps.slots.List)
	api.GET("/tutors/:id/availability", deps.availability.Get)

	me := api.Group("/tutors/me", auth, middleware.RequireRoles(models.RoleTutor))
	me.GET("/availability", deps.availability.GetOwn)
	me.PUT("/availability", deps.availability.Replace)
	me.PUT("/timezone", deps.availability.UpdateTimezone)
	me.GET("/time-blocks", deps.timeBlocks.List)
	me.POST("/time-blocks", deps.timeBlocks.Create)
	me.PUT("/time-blocks/:id", deps.timeBlocks.Update)
	me.DELETE("/time-blocks/:id", deps.timeBlocks.Delete)

	bookings := api.Group("/bookings", auth)
	bookings.POST("", middleware.RequireRoles(models.RoleStudent), deps.bookings.Create)
	bookings.GET("/:id", middleware.RequireRoles(models.RoleStudent, models.RoleTutor, models.RoleAdmin), deps.bookings.Get)

	return r
}
