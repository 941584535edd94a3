package router

import (
	"github.com/gin-gonic/gin"

	"noiseguard.app/engine/internal/http/handler"
)

func WebhookRouter(router *gin.RouterGroup, handler *handler.WebhookHandler) {
	router.POST("/:provider", handler.Receive)
}
