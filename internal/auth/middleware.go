package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/response"
)

var (
	ErrMissingToken  = apperror.New(http.StatusUnauthorized, "missing Authorization header")
	ErrMalformedAuth = apperror.New(http.StatusUnauthorized, "invalid Authorization header format")
	ErrInvalidToken  = apperror.New(http.StatusUnauthorized, "invalid or expired token")
)

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", ErrMalformedAuth
	}
	return token, nil
}

// AuthRequired verifies the bearer token and stores the requester's id and email.
// The role is attached later by the user-loading middleware.
func AuthRequired(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, err := jwtManager.ParseAndValidate(token)
		if err != nil {
			response.Error(c, apperror.WithCause(ErrInvalidToken, err))
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Next()
	}
}
