package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID    = "userID"
	ctxUserEmail = "userEmail"
	ctxUserRole  = "userRole"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return getString(c, ctxUserID)
}

// GetUserEmail returns the authenticated user's email or empty string.
func GetUserEmail(c *gin.Context) string {
	return getString(c, ctxUserEmail)
}

// SetUserRole records the requester's role once it has been looked up.
func SetUserRole(c *gin.Context, role string) {
	c.Set(ctxUserRole, role)
}

// GetUserRole returns the role stored by SetUserRole or empty string.
func GetUserRole(c *gin.Context) string {
	return getString(c, ctxUserRole)
}

func getString(c *gin.Context, key string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
