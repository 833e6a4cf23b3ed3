package api

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/campus-booking-backend/internal/auth"
	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/campus-booking-backend/internal/user"
)

// LoadUser resolves the authenticated user and stores their role on the context.
// It MUST be used after auth.AuthRequired middleware.
func LoadUser(userService user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.GetUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		u, err := userService.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
				return
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		if !u.IsActive {
			response.Error(c, user.ErrInactiveUser)
			c.Abort()
			return
		}

		auth.SetUserRole(c, string(u.Role))
		c.Next()
	}
}

// RequireRole allows the request through only for the listed roles.
// It MUST be used after LoadUser.
func RequireRole(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := user.Role(auth.GetUserRole(c))
		if !slices.Contains(roles, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: insufficient role"})
			return
		}
		c.Next()
	}
}
