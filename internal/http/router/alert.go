package router

import (
	"github.com/gin-gonic/gin"

	"noiseguard.app/engine/internal/http/handler"
)

func AlertRouter(router *gin.RouterGroup, classify *handler.ClassifyHandler, feedback *handler.FeedbackHandler) {
	router.GET("/:id/explain", classify.Explain)
	router.POST("/:id/feedback", feedback.Record)
}
