package router

import (
	"github.com/gin-gonic/gin"

	"noiseguard.app/engine/internal/http/handler"
)

func ConfigurationRouter(router *gin.RouterGroup, handler *handler.ReportHandler) {
	router.GET("/:id/stats", handler.Stats)
}
