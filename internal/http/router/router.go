package router

import (
	"github.com/gin-gonic/gin"

	"noiseguard.app/engine/internal/engine"
	"noiseguard.app/engine/internal/http/handler"
	"noiseguard.app/engine/internal/service"
	"noiseguard.app/engine/internal/store"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Ingest         *service.IngestService
	Alerts         store.AlertStore
	Configurations store.AlertConfigurationStore
	Engine         *engine.Engine
	Recorder       *engine.Recorder
	Aggregator     *engine.Aggregator
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		webhookHandler := handler.NewWebhookHandler(deps.Ingest)
		WebhookRouter(v1.Group("/webhooks"), webhookHandler)

		classifyHandler := handler.NewClassifyHandler(deps.Alerts, deps.Engine)
		feedbackHandler := handler.NewFeedbackHandler(deps.Recorder)
		AlertRouter(v1.Group("/alerts"), classifyHandler, feedbackHandler)

		reportHandler := handler.NewReportHandler(deps.Aggregator, deps.Alerts, deps.Configurations)
		ConfigurationRouter(v1.Group("/configurations"), reportHandler)
		ReportRouter(v1.Group("/reports"), reportHandler)
	}
}
