package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers booking routes. Every route needs an authenticated,
// loaded user; per-booking permissions are enforced by the service.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware ...gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware...)
	{
		group.GET("", h.List)
		group.POST("", h.Create)

		// Availability engine queries
		group.GET("/conflicts", h.Conflicts)
		group.GET("/availability", h.Availability)
		group.GET("/availability/free", h.FreeSlots)

		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
		group.PATCH("/:id/status", h.UpdateStatus)
	}
}
