package router

import (
	"github.com/gin-gonic/gin"

	"noiseguard.app/engine/internal/http/handler"
)

func ReportRouter(router *gin.RouterGroup, handler *handler.ReportHandler) {
	router.GET("/alerts", handler.AlertReport)
}
