package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkbooth/inkbooth/internal/analytics"
	"github.com/inkbooth/inkbooth/internal/common"
	"github.com/inkbooth/inkbooth/internal/config"
	"github.com/inkbooth/inkbooth/internal/geoip"
	"github.com/inkbooth/inkbooth/internal/httpapi/handlers"
	"github.com/inkbooth/inkbooth/internal/httpapi/middleware"
	"github.com/inkbooth/inkbooth/internal/store/rabbitmq"
	"github.com/inkbooth/inkbooth/internal/studio"
	"github.com/inkbooth/inkbooth/internal/token"
)

// NewRouter wires the user-facing API.
func NewRouter(cfg config.Config, tokens *token.Service, st *studio.Service, rabbit *rabbitmq.Publisher, resolver geoip.Resolver) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(cfg, tokens, st, rabbit)

	r.GET("/ping", h.Ping)

	r.POST("/session", middleware.ClientInfo(resolver), h.InitSession)
	r.POST("/uploads", h.Upload)
	r.POST("/generations", h.Generate)
	r.POST("/generations/async", h.GenerateAsync)
	r.GET("/jobs/:job_id", h.GetJob)

	return r
}

// NewDashboardRouter wires the analytics API served by cmd/dashboard.
func NewDashboardRouter(cfg config.Config, agg *analytics.Aggregator) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})

	h := handlers.NewDashboardHandler(cfg, agg)

	r.POST("/admin/login", h.Login)

	authGroup := r.Group("/analytics")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.POST("/prepare", h.Prepare)
	authGroup.GET("/top-uploaded", h.TopUploaded)
	authGroup.GET("/top-used", h.TopUsed)
	authGroup.GET("/style-usage", h.StyleUsage)
	authGroup.GET("/filters", h.Filters)

	return r
}
