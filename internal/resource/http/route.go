package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers resource-related routes.
// staffOnly guards catalogue edits; adminOnly guards deletion.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, staffOnly, adminOnly gin.HandlerFunc, authMiddleware ...gin.HandlerFunc) {
	group := g.Group("/resources")

	// === Authenticated Routes ===
	group.Use(authMiddleware...)
	{
		group.GET("", h.List)
		group.GET("/types", h.Types)
		group.GET("/locations", h.Locations)
		group.GET("/:id", h.Get)

		group.POST("", staffOnly, h.Create)
		group.PATCH("/:id", staffOnly, h.Update)
		group.PATCH("/:id/availability", staffOnly, h.AdjustAvailability)
		group.DELETE("/:id", adminOnly, h.Delete)
	}
}
