package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/apperror"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func render(err error) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Error(c, err)
	return w
}

func TestErrorRendersAppError(t *testing.T) {
	w := render(fmt.Errorf("wrapped: %w", apperror.New(http.StatusNotFound, "booking not found")))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "booking not found", body.Error)
}

func TestErrorHidesUnknownErrors(t *testing.T) {
	w := render(errors.New("connection reset by peer"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestNewPageResponseNeverNull(t *testing.T) {
	resp := NewPageResponse[int](nil, 1, 20, 0)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"page":1,"page_size":20,"total":0}`, string(raw))
}
