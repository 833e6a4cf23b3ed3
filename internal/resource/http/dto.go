package http

import (
	"time"

	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/campus-booking-backend/internal/resource"
)

const statusTag = "resource_status"

// RegisterValidators installs the binding tags used by this package's request bodies.
func RegisterValidators() error {
	return request.RegisterEnum(statusTag,
		string(resource.StatusAvailable),
		string(resource.StatusMaintenance),
		string(resource.StatusUnavailable),
	)
}

type ResourceResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	Capacity       int       `json:"capacity"`
	AvailableCount int       `json:"available_count"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ResourceTag is a brief representation of a resource.
type ResourceTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewResponse(r *resource.Resource) ResourceResponse {
	return ResourceResponse{
		ID:             r.ID,
		Name:           r.Name,
		Type:           r.Type,
		Description:    r.Description,
		Location:       r.Location,
		Capacity:       r.Capacity,
		AvailableCount: r.AvailableCount,
		Status:         string(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// ListResourcesRequest defines query parameters for listing resources.
type ListResourcesRequest struct {
	request.ListParams
	Type          string `form:"type"`
	Location      string `form:"location"`
	Status        string `form:"status" binding:"omitempty,resource_status"`
	AvailableOnly bool   `form:"available_only"`
	SortBy        string `form:"sort_by" binding:"omitempty,oneof=name type capacity created_at"`
}

type CreateRequest struct {
	Name           string `json:"name" binding:"required,min=2,max=255"`
	Type           string `json:"type" binding:"required,min=2,max=100"`
	Description    string `json:"description" binding:"max=1000"`
	Location       string `json:"location" binding:"max=255"`
	Capacity       int    `json:"capacity" binding:"required,min=1,max=1000"`
	AvailableCount *int   `json:"available_count" binding:"omitempty,min=0"`
	Status         string `json:"status" binding:"omitempty,resource_status"`
}

// Validate performs cross-field checks binding tags cannot express.
func (r *CreateRequest) Validate() error {
	if r.AvailableCount != nil && *r.AvailableCount > r.Capacity {
		return resource.ErrInvalidAvailability
	}
	return nil
}

type UpdateRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=2,max=255"`
	Type           *string `json:"type" binding:"omitempty,min=2,max=100"`
	Description    *string `json:"description" binding:"omitempty,max=1000"`
	Location       *string `json:"location" binding:"omitempty,max=255"`
	Capacity       *int    `json:"capacity" binding:"omitempty,min=1,max=1000"`
	AvailableCount *int    `json:"available_count" binding:"omitempty,min=0"`
	Status         *string `json:"status" binding:"omitempty,resource_status"`
}

// AdjustAvailabilityRequest moves available_count by Change, clamped to [0, capacity].
type AdjustAvailabilityRequest struct {
	Change int `json:"change" binding:"required,ne=0"`
}
