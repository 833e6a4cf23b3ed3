package http

import (
	"time"

	"github.com/nekogravitycat/campus-booking-backend/internal/user"
)

// UserResponse is the shape of user data returned in API responses.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Department  *string   `json:"department"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserTag is a brief representation of a user.
type UserTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		Department:  u.Department,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
}

// MeResponse returns the current user info.
type MeResponse struct {
	User UserResponse `json:"user"`
}
