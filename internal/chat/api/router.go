package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ninedotdev/jean/internal/agent/discovery"
	"github.com/ninedotdev/jean/internal/chat/service"
	"github.com/ninedotdev/jean/internal/common/logger"
)

// SetupRoutes configures the chat API routes.
// router should be the /api/v1 group.
func SetupRoutes(router *gin.RouterGroup, svc *service.Service, resolver *discovery.Resolver, log *logger.Logger) {
	handler := NewHandler(svc, resolver, log)

	chat := router.Group("/chat")
	{
		chat.GET("/vendors", handler.ListVendors)

		chat.POST("/runs", handler.StartRun)
		chat.GET("/runs", handler.ListRuns)
		chat.GET("/runs/:sessionId", handler.GetRunStatus)
		chat.DELETE("/runs/:sessionId", handler.CancelRun)
		chat.POST("/runs/:sessionId/replay", handler.ReplayRun)
	}
}
