package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/campus-booking-backend/internal/auth"
	"github.com/nekogravitycat/campus-booking-backend/internal/booking"
	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/campus-booking-backend/internal/user"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) CheckConflicts(ctx context.Context, resourceID string, iv booking.Interval, excludeBookingID string) ([]*booking.Booking, error) {
	args := m.Called(ctx, resourceID, iv, excludeBookingID)
	b, _ := args.Get(0).([]*booking.Booking)
	return b, args.Error(1)
}

func (m *mockService) GetAvailability(ctx context.Context, resourceID string, window booking.Interval) ([]booking.Slot, error) {
	args := m.Called(ctx, resourceID, window)
	s, _ := args.Get(0).([]booking.Slot)
	return s, args.Error(1)
}

func (m *mockService) FreeSlots(ctx context.Context, resourceID string, window booking.Interval) ([]booking.Interval, error) {
	args := m.Called(ctx, resourceID, window)
	s, _ := args.Get(0).([]booking.Interval)
	return s, args.Error(1)
}

func (m *mockService) Create(ctx context.Context, actor booking.Actor, req booking.CreateRequest) (*booking.Booking, error) {
	args := m.Called(ctx, actor, req)
	b, _ := args.Get(0).(*booking.Booking)
	return b, args.Error(1)
}

func (m *mockService) GetByID(ctx context.Context, actor booking.Actor, id string) (*booking.Booking, error) {
	args := m.Called(ctx, actor, id)
	b, _ := args.Get(0).(*booking.Booking)
	return b, args.Error(1)
}

func (m *mockService) List(ctx context.Context, actor booking.Actor, filter booking.Filter) ([]*booking.Booking, int, error) {
	args := m.Called(ctx, actor, filter)
	b, _ := args.Get(0).([]*booking.Booking)
	return b, args.Int(1), args.Error(2)
}

func (m *mockService) Update(ctx context.Context, actor booking.Actor, id string, req booking.UpdateRequest) (*booking.Booking, error) {
	args := m.Called(ctx, actor, id, req)
	b, _ := args.Get(0).(*booking.Booking)
	return b, args.Error(1)
}

func (m *mockService) UpdateStatus(ctx context.Context, actor booking.Actor, id string, status booking.Status) (*booking.Booking, error) {
	args := m.Called(ctx, actor, id, status)
	b, _ := args.Get(0).(*booking.Booking)
	return b, args.Error(1)
}

func (m *mockService) Delete(ctx context.Context, actor booking.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *mockService) CompleteElapsed(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

var (
	userID     = uuid.NewString()
	resourceID = uuid.NewString()
	bookingID  = uuid.NewString()
	student    = booking.Actor{UserID: userID, Role: user.RoleStudent}
	day        = time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)
)

func at(hour int) time.Time {
	return day.Add(time.Duration(hour) * time.Hour)
}

func asStudent(c *gin.Context) {
	c.Set("userID", userID)
	auth.SetUserRole(c, string(user.RoleStudent))
	c.Next()
}

func setupRouter(t *testing.T, svc booking.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewHandler(svc), asStudent)
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func windowQuery(from, to int) string {
	q := url.Values{}
	q.Set("resource_id", resourceID)
	q.Set("start", at(from).Format(time.RFC3339))
	q.Set("end", at(to).Format(time.RFC3339))
	return q.Encode()
}

func sampleBooking(from, to int, status booking.Status) *booking.Booking {
	return &booking.Booking{
		ID:           bookingID,
		ResourceID:   resourceID,
		ResourceName: "Room 101",
		UserID:       userID,
		UserName:     "Sam",
		StartTime:    at(from),
		EndTime:      at(to),
		Status:       status,
	}
}

func TestCreate(t *testing.T) {
	svc := new(mockService)
	svc.On("Create", mock.Anything, student, booking.CreateRequest{
		ResourceID: resourceID, StartTime: at(10), EndTime: at(11), Purpose: "tutorial",
	}).Return(sampleBooking(10, 11, booking.StatusPending), nil)

	r := setupRouter(t, svc)
	w := do(r, http.MethodPost, "/v1/bookings", gin.H{
		"resource_id": resourceID, "start_time": at(10), "end_time": at(11), "purpose": "tutorial",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var body BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, bookingID, body.ID)
	assert.Equal(t, "Room 101", body.Resource.Name)
	assert.Equal(t, "Sam", body.User.Name)
	assert.Equal(t, "pending", body.Status)
	svc.AssertExpectations(t)
}

func TestCreateConflictListsBlockingBookings(t *testing.T) {
	svc := new(mockService)
	blocking := sampleBooking(10, 11, booking.StatusConfirmed)
	svc.On("Create", mock.Anything, student, mock.Anything).
		Return(nil, &booking.ConflictError{Conflicts: []*booking.Booking{blocking}})

	r := setupRouter(t, svc)
	w := do(r, http.MethodPost, "/v1/bookings", gin.H{
		"resource_id": resourceID, "start_time": at(10), "end_time": at(12),
	})

	require.Equal(t, http.StatusConflict, w.Code)
	var body ConflictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, booking.ErrTimeConflict.Message, body.Error)
	require.Len(t, body.Conflicts, 1)
	assert.Equal(t, bookingID, body.Conflicts[0].ID)
	assert.Equal(t, "confirmed", body.Conflicts[0].Status)
}

func TestCreateErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"resource not found", booking.ErrResourceNotFound, http.StatusNotFound},
		{"invalid interval", booking.ErrInvalidTimeRange, http.StatusBadRequest},
		{"lock timeout", booking.ErrLockTimeout, http.StatusConflict},
		{"unavailable resource", booking.ErrResourceUnavailable, http.StatusConflict},
		{"fully booked resource", booking.ErrResourceFullyBooked, http.StatusBadRequest},
		{"unexpected", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			svc.On("Create", mock.Anything, student, mock.Anything).Return(nil, tt.err)

			r := setupRouter(t, svc)
			w := do(r, http.MethodPost, "/v1/bookings", gin.H{
				"resource_id": resourceID, "start_time": at(10), "end_time": at(11),
			})
			assert.Equal(t, tt.want, w.Code)

			var body response.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body gin.H
	}{
		{"missing resource", gin.H{"start_time": at(10), "end_time": at(11)}},
		{"resource not a uuid", gin.H{"resource_id": "room-1", "start_time": at(10), "end_time": at(11)}},
		{"malformed time", gin.H{"resource_id": resourceID, "start_time": "tomorrow", "end_time": at(11)}},
		{"purpose too long", gin.H{"resource_id": resourceID, "start_time": at(10), "end_time": at(11), "purpose": string(make([]byte, 501))}},
	}

	svc := new(mockService)
	r := setupRouter(t, svc)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/v1/bookings", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestConflicts(t *testing.T) {
	svc := new(mockService)
	exclude := uuid.NewString()
	svc.On("CheckConflicts", mock.Anything, resourceID, booking.Interval{Start: at(10), End: at(12)}, exclude).
		Return([]*booking.Booking{sampleBooking(11, 13, booking.StatusPending)}, nil)

	r := setupRouter(t, svc)
	w := do(r, http.MethodGet, "/v1/bookings/conflicts?"+windowQuery(10, 12)+"&exclude_booking_id="+exclude, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body response.ListResponse[BookingResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, bookingID, body.Items[0].ID)
}

func TestConflictsEmptyIsArray(t *testing.T) {
	svc := new(mockService)
	svc.On("CheckConflicts", mock.Anything, resourceID, mock.Anything, "").Return(nil, nil)

	r := setupRouter(t, svc)
	w := do(r, http.MethodGet, "/v1/bookings/conflicts?"+windowQuery(10, 12), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
}

func TestConflictsRequiresResource(t *testing.T) {
	r := setupRouter(t, new(mockService))
	w := do(r, http.MethodGet, "/v1/bookings/conflicts?start="+at(10).Format(time.RFC3339), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConflictsInvalidInterval(t *testing.T) {
	svc := new(mockService)
	svc.On("CheckConflicts", mock.Anything, resourceID, mock.Anything, "").Return(nil, booking.ErrInvalidTimeRange)

	r := setupRouter(t, svc)
	w := do(r, http.MethodGet, "/v1/bookings/conflicts?"+windowQuery(12, 10), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailability(t *testing.T) {
	svc := new(mockService)
	svc.On("GetAvailability", mock.Anything, resourceID, booking.Interval{Start: at(8), End: at(17)}).
		Return([]booking.Slot{
			{Start: at(9), End: at(10), Status: booking.StatusConfirmed},
			{Start: at(10), End: at(11), Status: booking.StatusPending},
		}, nil)

	r := setupRouter(t, svc)
	w := do(r, http.MethodGet, "/v1/bookings/availability?"+windowQuery(8, 17), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body AvailabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, resourceID, body.ResourceID)
	require.Len(t, body.Slots, 2)
	assert.Equal(t, "confirmed", body.Slots[0].Status)
	assert.True(t, body.Slots[1].Start.Equal(at(10)))
}

func TestAvailabilityUnknownResource(t *testing.T) {
	svc := new(mockService)
	svc.On("GetAvailability", mock.Anything, resourceID, mock.Anything).Return(nil, booking.ErrResourceNotFound)

	r := setupRouter(t, svc)
	w := do(r, http.MethodGet, "/v1/bookings/availability?"+windowQuery(8, 17), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFreeSlots(t *testing.T) {
	svc := new(mockService)
	svc.On("FreeSlots", mock.Anything, resourceID, booking.Interval{Start: at(8), End: at(17)}).
		Return([]booking.Interval{{Start: at(8), End: at(9)}, {Start: at(11), End: at(17)}}, nil)

	r := setupRouter(t, svc)
	w := do(r, http.MethodGet, "/v1/bookings/availability/free?"+windowQuery(8, 17), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body AvailabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Slots, 2)
	assert.Empty(t, body.Slots[0].Status)
	assert.True(t, body.Slots[1].End.Equal(at(17)))
}

func TestList(t *testing.T) {
	svc := new(mockService)
	from := at(8)
	svc.On("List", mock.Anything, student, booking.Filter{
		ResourceID: resourceID, Status: "pending", From: &from,
		Page: 1, PageSize: 20, SortOrder: "DESC",
	}).Return([]*booking.Booking{sampleBooking(10, 11, booking.StatusPending)}, 1, nil)

	r := setupRouter(t, svc)
	q := url.Values{}
	q.Set("resource_id", resourceID)
	q.Set("status", "pending")
	q.Set("from", from.Format(time.RFC3339))
	w := do(r, http.MethodGet, "/v1/bookings?"+q.Encode(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body response.PageResponse[BookingResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Items, 1)
}

func TestListValidation(t *testing.T) {
	r := setupRouter(t, new(mockService))

	w := do(r, http.MethodGet, "/v1/bookings?status=approved", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	q := url.Values{}
	q.Set("from", at(12).Format(time.RFC3339))
	q.Set("to", at(10).Format(time.RFC3339))
	w = do(r, http.MethodGet, "/v1/bookings?"+q.Encode(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGet(t *testing.T) {
	svc := new(mockService)
	svc.On("GetByID", mock.Anything, student, bookingID).Return(nil, booking.ErrPermissionDenied)

	r := setupRouter(t, svc)
	w := do(r, http.MethodGet, "/v1/bookings/"+bookingID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/v1/bookings/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdate(t *testing.T) {
	svc := new(mockService)
	start, end := at(14), at(15)
	svc.On("Update", mock.Anything, student, bookingID, booking.UpdateRequest{StartTime: &start, EndTime: &end}).
		Return(sampleBooking(14, 15, booking.StatusPending), nil)

	r := setupRouter(t, svc)
	w := do(r, http.MethodPatch, "/v1/bookings/"+bookingID, gin.H{"start_time": start, "end_time": end})

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestUpdateRejectsInvertedInterval(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(t, svc)

	w := do(r, http.MethodPatch, "/v1/bookings/"+bookingID, gin.H{"start_time": at(15), "end_time": at(14)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateClosedBooking(t *testing.T) {
	svc := new(mockService)
	svc.On("Update", mock.Anything, student, bookingID, mock.Anything).Return(nil, booking.ErrBookingClosed)

	r := setupRouter(t, svc)
	w := do(r, http.MethodPatch, "/v1/bookings/"+bookingID, gin.H{"purpose": "moved"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateStatus(t *testing.T) {
	svc := new(mockService)
	svc.On("UpdateStatus", mock.Anything, student, bookingID, booking.StatusCancelled).
		Return(sampleBooking(10, 11, booking.StatusCancelled), nil)
	svc.On("UpdateStatus", mock.Anything, student, bookingID, booking.StatusConfirmed).
		Return(nil, booking.ErrPermissionDenied)

	r := setupRouter(t, svc)

	w := do(r, http.MethodPatch, "/v1/bookings/"+bookingID+"/status", gin.H{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code)
	var body BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "cancelled", body.Status)

	w = do(r, http.MethodPatch, "/v1/bookings/"+bookingID+"/status", gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPatch, "/v1/bookings/"+bookingID+"/status", gin.H{"status": "approved"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	svc := new(mockService)
	svc.On("UpdateStatus", mock.Anything, student, bookingID, booking.StatusCancelled).
		Return(nil, booking.ErrInvalidTransition)

	r := setupRouter(t, svc)
	w := do(r, http.MethodPatch, "/v1/bookings/"+bookingID+"/status", gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDelete(t *testing.T) {
	svc := new(mockService)
	svc.On("Delete", mock.Anything, student, bookingID).Return(nil)

	r := setupRouter(t, svc)
	w := do(r, http.MethodDelete, "/v1/bookings/"+bookingID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}
