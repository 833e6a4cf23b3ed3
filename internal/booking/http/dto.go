package http

import (
	"time"

	"github.com/nekogravitycat/campus-booking-backend/internal/booking"
	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/request"
	resHttp "github.com/nekogravitycat/campus-booking-backend/internal/resource/http"
	userHttp "github.com/nekogravitycat/campus-booking-backend/internal/user/http"
)

const statusTag = "booking_status"

// RegisterValidators installs the binding tags used by this package's requests.
func RegisterValidators() error {
	return request.RegisterEnum(statusTag,
		string(booking.StatusPending),
		string(booking.StatusConfirmed),
		string(booking.StatusCancelled),
		string(booking.StatusCompleted),
	)
}

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	ResourceID string     `form:"resource_id" binding:"omitempty,uuid"`
	UserID     string     `form:"user_id" binding:"omitempty,uuid"`
	Status     string     `form:"status" binding:"omitempty,booking_status"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	SortBy     string     `form:"sort_by" binding:"omitempty,oneof=start_time end_time created_at status"`
}

// Validate performs custom validation for ListBookingsRequest.
func (r *ListBookingsRequest) Validate() error {
	if r.From != nil && r.To != nil && !r.From.Before(*r.To) {
		return booking.ErrInvalidTimeRange
	}
	return nil
}

// WindowQuery selects a resource and a half-open time range.
type WindowQuery struct {
	ResourceID string    `form:"resource_id" binding:"required,uuid"`
	Start      time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	End        time.Time `form:"end" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (q WindowQuery) Interval() booking.Interval {
	return booking.Interval{Start: q.Start, End: q.End}
}

type ConflictsQuery struct {
	WindowQuery
	ExcludeBookingID string `form:"exclude_booking_id" binding:"omitempty,uuid"`
}

type CreateBookingRequest struct {
	ResourceID string    `json:"resource_id" binding:"required,uuid"`
	StartTime  time.Time `json:"start_time" binding:"required"`
	EndTime    time.Time `json:"end_time" binding:"required"`
	Purpose    string    `json:"purpose" binding:"max=500"`
}

// UpdateBookingRequest reschedules a booking or edits its purpose.
type UpdateBookingRequest struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Purpose   *string    `json:"purpose" binding:"omitempty,max=500"`
}

// Validate performs custom validation for UpdateBookingRequest.
func (r *UpdateBookingRequest) Validate() error {
	if r.StartTime != nil && r.EndTime != nil && !r.StartTime.Before(*r.EndTime) {
		return booking.ErrInvalidTimeRange
	}
	return nil
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,booking_status"`
}

type BookingResponse struct {
	ID        string              `json:"id"`
	Resource  resHttp.ResourceTag `json:"resource"`
	User      userHttp.UserTag    `json:"user"`
	StartTime time.Time           `json:"start_time"`
	EndTime   time.Time           `json:"end_time"`
	Status    string              `json:"status"`
	Purpose   string              `json:"purpose"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:        b.ID,
		Resource:  resHttp.ResourceTag{ID: b.ResourceID, Name: b.ResourceName},
		User:      userHttp.UserTag{ID: b.UserID, Name: b.UserName},
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Status:    string(b.Status),
		Purpose:   b.Purpose,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func newBookingResponses(bookings []*booking.Booking) []BookingResponse {
	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}
	return items
}

// ConflictResponse is returned with 409 when a write overlaps active bookings.
type ConflictResponse struct {
	Error     string            `json:"error"`
	Conflicts []BookingResponse `json:"conflicts"`
}

type SlotResponse struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status,omitempty"`
}

type AvailabilityResponse struct {
	ResourceID string         `json:"resource_id"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	Slots      []SlotResponse `json:"slots"`
}

func newAvailabilityResponse(q WindowQuery, slots []SlotResponse) AvailabilityResponse {
	if slots == nil {
		slots = []SlotResponse{}
	}
	return AvailabilityResponse{ResourceID: q.ResourceID, Start: q.Start, End: q.End, Slots: slots}
}
