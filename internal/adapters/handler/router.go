package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/adapters/middleware"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

type RouterConfig struct {
	Workflow       ports.WorkflowService
	Auth           *middleware.AuthMiddleware
	Health         *HealthHandler
	Metrics        http.Handler
	AllowedOrigins []string
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (OpenShift compatible)
	health := cfg.Health
	if health == nil {
		health = NewHealthHandler()
	}
	router.GET("/health", health.Health)
	router.GET("/health/ready", health.Ready)
	router.GET("/health/live", health.Live)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	donations := NewDonationHandler(cfg.Workflow)
	appointments := NewAppointmentHandler(cfg.Workflow)

	staff := cfg.Auth.RequireRole(middleware.RoleAdmin, middleware.RoleStaff)
	member := cfg.Auth.RequireRole(middleware.RoleMember)
	anyone := cfg.Auth.RequireRole(middleware.RoleAdmin, middleware.RoleStaff, middleware.RoleMember)

	d := router.Group("/donations")
	{
		d.POST("/request", member, donations.Create)
		d.GET("/my-history", member, donations.MyHistory)
		d.GET("/requests", staff, donations.List)
		d.GET("/requests/:id", anyone, donations.Get)
		d.PUT("/requests/:id/status", staff, donations.UpdateStatus)

		d.POST("/:id/health-check", staff, donations.RecordHealthCheck)
		d.POST("/:id/collect", staff, donations.CollectBlood)
		d.POST("/:id/test-result", staff, donations.RecordTestResult)
		d.POST("/:id/complete", staff, donations.Complete)
		d.POST("/:id/cancel", anyone, donations.Cancel)
	}

	a := router.Group("/appointments")
	{
		a.POST("", staff, appointments.Schedule)
		a.POST("/:id/reschedule", anyone, appointments.Reschedule)
	}

	return router
}
