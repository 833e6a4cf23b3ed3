package resource

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound            = apperror.New(http.StatusNotFound, "resource not found")
	ErrInvalidName         = apperror.New(http.StatusBadRequest, "name must be between 2 and 255 characters")
	ErrInvalidType         = apperror.New(http.StatusBadRequest, "type must be between 2 and 100 characters")
	ErrDescriptionTooLong  = apperror.New(http.StatusBadRequest, "description must be at most 1000 characters")
	ErrLocationTooLong     = apperror.New(http.StatusBadRequest, "location must be at most 255 characters")
	ErrInvalidCapacity     = apperror.New(http.StatusBadRequest, "capacity must be between 1 and 1000")
	ErrInvalidAvailability = apperror.New(http.StatusBadRequest, "available count must be between 0 and capacity")
	ErrInvalidStatus       = apperror.New(http.StatusBadRequest, "invalid resource status")
	ErrHasActiveBookings   = apperror.New(http.StatusConflict, "resource has pending or confirmed bookings")
	ErrInvalidAdjustment   = apperror.New(http.StatusBadRequest, "availability change must not be zero")
)

const (
	MaxCapacity          = 1000
	MaxNameLength        = 255
	MaxTypeLength        = 100
	MaxDescriptionLength = 1000
	MaxLocationLength    = 255
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusMaintenance Status = "maintenance"
	StatusUnavailable Status = "unavailable"
)

// ParseStatus validates a resource status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusAvailable, StatusMaintenance, StatusUnavailable:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Resource is a bookable unit such as a lecture hall or a projector.
type Resource struct {
	ID          string
	Name        string
	Type        string
	Description string
	Location    string
	Capacity    int
	// AvailableCount is managed by staff. Zero blocks new bookings but never affects interval conflicts.
	AvailableCount int
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Bookable reports whether new bookings may be placed on the resource.
func (r *Resource) Bookable() bool {
	return r.Status == StatusAvailable
}

// Filter defines parameters for listing resources.
type Filter struct {
	Type          string
	Location      string // substring, case-insensitive
	Status        string
	AvailableOnly bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
