package user

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "user not found")
	ErrEmailAlreadyUsed = apperror.New(http.StatusConflict, "email already used")
	ErrEmailRequired    = apperror.New(http.StatusBadRequest, "email is required")
	ErrNameRequired     = apperror.New(http.StatusBadRequest, "display name is required")
	ErrInvalidRole      = apperror.New(http.StatusBadRequest, "invalid role")
	ErrInactiveUser     = apperror.New(http.StatusForbidden, "user is inactive")
)

type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleStudent, RoleFaculty, RoleStaff, RoleAdmin:
		return r, nil
	}
	return "", ErrInvalidRole
}

// IsStaff reports whether the role manages resources and other people's bookings.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// User is the requester identity referenced by bookings.
type User struct {
	ID          string // UUID
	Email       string
	DisplayName string
	Role        Role
	Department  *string
	IsActive    bool
	CreatedAt   time.Time
}
