package booking

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/apperror"
)

// MaxPurposeLength is measured in characters.
const MaxPurposeLength = 500

var (
	ErrNotFound            = apperror.New(http.StatusNotFound, "booking not found")
	ErrTimeConflict        = apperror.New(http.StatusConflict, "time slot already booked")
	ErrInvalidTimeRange    = apperror.New(http.StatusBadRequest, "start time must be before end time")
	ErrInvalidStatus       = apperror.New(http.StatusBadRequest, "invalid booking status")
	ErrResourceNotFound    = apperror.New(http.StatusNotFound, "resource not found")
	ErrResourceUnavailable = apperror.New(http.StatusConflict, "resource is not available for booking")
	ErrResourceFullyBooked = apperror.New(http.StatusBadRequest, "resource is fully booked")
	ErrUserNotFound        = apperror.New(http.StatusNotFound, "user not found")
	ErrPermissionDenied    = apperror.New(http.StatusForbidden, "permission denied")
	ErrStartTimePast       = apperror.New(http.StatusBadRequest, "start time must be in the future")
	ErrPurposeTooLong      = apperror.New(http.StatusBadRequest, "purpose must be at most 500 characters")
	ErrInvalidTransition   = apperror.New(http.StatusConflict, "status transition not allowed")
	ErrBookingClosed       = apperror.New(http.StatusConflict, "booking is cancelled or completed")
	ErrLockTimeout         = apperror.New(http.StatusConflict, "resource is busy, try again")
)

type Booking struct {
	ID           string
	ResourceID   string
	ResourceName string
	UserID       string
	UserName     string
	StartTime    time.Time
	EndTime      time.Time
	Status       Status
	Purpose      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

type Filter struct {
	UserID     string
	ResourceID string
	Status     string
	// From and To select bookings intersecting [From, To).
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Slot is one occupied interval as reported by GetAvailability.
type Slot struct {
	Start  time.Time
	End    time.Time
	Status Status
}

// ConflictError rejects a write and carries the active bookings that caused it.
type ConflictError struct {
	Conflicts []*Booking
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s (%d conflicting)", ErrTimeConflict.Message, len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error {
	return ErrTimeConflict
}
