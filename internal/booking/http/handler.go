package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/campus-booking-backend/internal/auth"
	"github.com/nekogravitycat/campus-booking-backend/internal/booking"
	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/campus-booking-backend/internal/user"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

// actor builds the requester from values set by the auth and user-loading middleware.
func actor(c *gin.Context) booking.Actor {
	return booking.Actor{
		UserID: auth.GetUserID(c),
		Role:   user.Role(auth.GetUserRole(c)),
	}
}

// writeError renders conflicts with the blocking bookings and defers everything else to response.Error.
func writeError(c *gin.Context, err error) {
	var ce *booking.ConflictError
	if errors.As(err, &ce) {
		c.JSON(http.StatusConflict, ConflictResponse{
			Error:     booking.ErrTimeConflict.Message,
			Conflicts: newBookingResponses(ce.Conflicts),
		})
		return
	}
	response.Error(c, err)
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	req.Normalize("DESC")

	filter := booking.Filter{
		UserID:     req.UserID,
		ResourceID: req.ResourceID,
		Status:     req.Status,
		From:       req.From,
		To:         req.To,
		Page:       req.Page,
		PageSize:   req.PageSize,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	}

	bookings, total, err := h.service.List(c.Request.Context(), actor(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPageResponse(newBookingResponses(bookings), req.Page, req.PageSize, total))
}

func (h *Handler) Conflicts(c *gin.Context) {
	var q ConflictsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	conflicts, err := h.service.CheckConflicts(c.Request.Context(), q.ResourceID, q.Interval(), q.ExcludeBookingID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewListResponse(newBookingResponses(conflicts)))
}

func (h *Handler) Availability(c *gin.Context) {
	var q WindowQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	slots, err := h.service.GetAvailability(c.Request.Context(), q.ResourceID, q.Interval())
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]SlotResponse, len(slots))
	for i, s := range slots {
		items[i] = SlotResponse{Start: s.Start, End: s.End, Status: string(s.Status)}
	}
	c.JSON(http.StatusOK, newAvailabilityResponse(q, items))
}

func (h *Handler) FreeSlots(c *gin.Context) {
	var q WindowQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	free, err := h.service.FreeSlots(c.Request.Context(), q.ResourceID, q.Interval())
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]SlotResponse, len(free))
	for i, iv := range free {
		items[i] = SlotResponse{Start: iv.Start, End: iv.End}
	}
	c.JSON(http.StatusOK, newAvailabilityResponse(q, items))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	b, err := h.service.Create(c.Request.Context(), actor(c), booking.CreateRequest{
		ResourceID: body.ResourceID,
		StartTime:  body.StartTime,
		EndTime:    body.EndTime,
		Purpose:    body.Purpose,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), actor(c), req.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body UpdateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	b, err := h.service.Update(c.Request.Context(), actor(c), uri.ID, booking.UpdateRequest{
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Purpose:   body.Purpose,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	b, err := h.service.UpdateStatus(c.Request.Context(), actor(c), uri.ID, booking.Status(body.Status))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Delete(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor(c), req.ID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
