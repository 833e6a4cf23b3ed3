package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers user routes. Account management lives outside this service.
func RegisterRoutes(g *gin.RouterGroup, h *UserHandler, authMiddleware ...gin.HandlerFunc) {
	g.GET("/me", append(authMiddleware, h.Me)...)
}
