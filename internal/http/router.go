package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/campusfix/dispatch/internal/config"
	"github.com/campusfix/dispatch/internal/http/handlers"
	"github.com/campusfix/dispatch/internal/http/middleware"
	"github.com/campusfix/dispatch/internal/models"
	"github.com/campusfix/dispatch/internal/service"

	_ "github.com/campusfix/dispatch/docs"
)

func Router(cfg config.Config, engine *service.Engine, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" || cfg.CORSAllowed == "" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Engine:    engine,
		Catalog:   engine.Catalog,
		Validator: handlers.NewValidator(engine.Catalog),
		Logger:    logger,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	{
		api.POST("/reports", h.CreateReport)
		api.GET("/reports", h.ListReports)
		api.GET("/reports/export", h.ExportOpenWork)
		api.GET("/reports/:id", h.GetReport)
		api.GET("/reports/:id/duplicates", h.Duplicates)
		api.POST("/inbound-email", h.InboundEmail)
		api.GET("/technicians", h.ListTechnicians)
		api.GET("/technicians/:id", h.GetTechnician)
		api.GET("/assignments", h.ListAssignments)
		api.PATCH("/assignments/:id/status", h.UpdateAssignmentStatus)
		api.GET("/runs/latest", h.RunsLatest)
		api.GET("/buildings", h.Buildings)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/reports/:id/assign", h.Assign)
		admin.POST("/technicians", h.CreateTechnician)
		admin.PUT("/technicians/:id", h.UpdateTechnician)
		admin.DELETE("/technicians/:id", h.DeleteTechnician)
		admin.POST("/sweeps/escalation", h.Sweep(models.SweepEscalation))
		admin.POST("/sweeps/batch", h.Sweep(models.SweepBatch))
		admin.POST("/sweeps/preventive", h.Sweep(models.SweepPreventive))
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
