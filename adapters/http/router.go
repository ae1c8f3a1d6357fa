package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/town-notes/pkg/auth"
	"github.com/khoahotran/town-notes/pkg/logger"
)

type RouterConfig struct {
	ProfileHandler     *ProfileHandler
	FieldReportHandler *FieldReportHandler
	JWTService         *auth.JWTService
	Metrics            *Metrics
	Logger             logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(RecoveryMiddleware(cfg.Logger))
	router.Use(RequestLogger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
	}
	router.Use(ErrorMiddleware(cfg.Logger))

	router.GET("/metrics", MetricsHandler())

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })

		private := api.Group("/")
		private.Use(AuthMiddleware(cfg.JWTService, cfg.Logger))
		{
			profiles := private.Group("/profiles")
			{
				profiles.POST("", cfg.ProfileHandler.CreateProfile)
				profiles.GET("/:email", cfg.ProfileHandler.FetchProfile)
				profiles.PATCH("/:email", cfg.ProfileHandler.UpdateUser)
			}

			reports := private.Group("/sessions/:sessionID/field-reports")
			{
				reports.POST("", cfg.FieldReportHandler.CreateFieldReport)
				reports.GET("/:username", cfg.FieldReportHandler.ListFieldReport)
				reports.PATCH("/:username", cfg.FieldReportHandler.UpdateFieldReport)
				reports.PUT("/:username", cfg.FieldReportHandler.SaveFieldReport)
			}
		}
	}

	return router
}
