package main

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/studyvault-api/internal/handler"
	"github.com/noah-isme/studyvault-api/internal/middleware"
	"github.com/noah-isme/studyvault-api/internal/models"
	"github.com/noah-isme/studyvault-api/pkg/config"
	"github.com/noah-isme/studyvault-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/studyvault-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/studyvault-api/pkg/middleware/requestid"
	sessionmiddleware "github.com/noah-isme/studyvault-api/pkg/middleware/session"
)

type routeHandlers struct {
	catalog  *handler.CatalogHandler
	preview  *handler.PreviewHandler
	upload   *handler.UploadHandler
	review   *handler.ReviewHandler
	activity *handler.ActivityHandler
	files    *handler.FileHandler
	metrics  *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, observer middleware.HTTPObserver, tokens middleware.TokenValidator, h routeHandlers) *gin.Engine {
	var store sessions.Store = sessionmiddleware.NewStore(cfg.Session)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(sessionmiddleware.Middleware(store, cfg.Session.CookieName, logr))
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(observer))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if h.files != nil {
		r.GET("/files/:token", h.files.Serve)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokens), middleware.WithResponseMeta())

	catalog := api.Group("/catalog/:kind")
	catalog.GET("/options", h.catalog.Options)
	catalog.GET("/search", h.catalog.Search)
	catalog.POST("/:id/preview", h.preview.Select)
	catalog.POST("/:id/download", h.preview.Download)
	catalog.POST("/:id/votes", h.catalog.Vote)

	views := api.Group("/views/:kind")
	views.GET("/filters", h.catalog.GetFilters)
	views.POST("/filters", h.catalog.ApplyFilter)
	views.DELETE("/filters", h.catalog.ResetFilters)

	api.GET("/saved/:kind", h.catalog.Saved)
	api.POST("/saved/:kind/:id/toggle", h.catalog.ToggleSaved)
	api.POST("/hidden/:kind/:id/toggle", h.catalog.ToggleHidden)

	api.GET("/quota", h.preview.Quota)
	api.DELETE("/preview", h.preview.Release)
	api.GET("/preview/:session", h.preview.Get)
	api.POST("/preview/:session/visible", h.preview.Visible)

	api.POST("/uploads/:kind", h.upload.Upload)

	api.GET("/professors/:professor/reviews", h.review.List)
	api.POST("/professors/:professor/reviews", h.review.Create)

	api.GET("/me/activity/export", h.activity.Export)

	admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.DELETE("/catalog/:kind/cache", h.catalog.InvalidateCache)

	return r
}
