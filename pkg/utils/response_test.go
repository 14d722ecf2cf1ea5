package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestSendSuccessEnvelope(t *testing.T) {
	c, w := testContext()
	SendSuccess(c, map[string]int{"rating": 1509})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]interface{}{"rating": float64(1509)}, resp.Data)
}

func TestSendErrorEnvelopes(t *testing.T) {
	tests := []struct {
		name     string
		send     func(c *gin.Context)
		status   int
		code     string
		message  string
		details  string
	}{
		{
			"validation",
			func(c *gin.Context) { SendValidationError(c, "Invalid game ID", "not a number") },
			http.StatusBadRequest, ErrCodeValidation, "Invalid game ID", "not a number",
		},
		{
			"not found",
			func(c *gin.Context) { SendNotFound(c, "Prediction not found") },
			http.StatusNotFound, ErrCodeNotFound, "Prediction not found", "",
		},
		{
			"internal",
			func(c *gin.Context) { SendInternalError(c, "Failed to fetch ratings") },
			http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch ratings", "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := testContext()
			tt.send(c)

			assert.Equal(t, tt.status, w.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
			assert.Equal(t, tt.details, resp.Error.Details)
		})
	}
}

func TestAppErrorImplementsError(t *testing.T) {
	err := NewAppError(ErrCodeNotFound, "missing")
	assert.Equal(t, "missing", err.Error())
	assert.Empty(t, err.Details)
}
