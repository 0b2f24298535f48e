package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func record(fn func(c *gin.Context)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)
	return w
}

func TestSuccess(t *testing.T) {
	w := record(func(c *gin.Context) {
		Success(c, gin.H{"status": "healthy"})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestAccepted(t *testing.T) {
	w := record(func(c *gin.Context) {
		Accepted(c, gin.H{"task_id": "abc123", "status": "accepted"})
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "abc123")
}

func TestBadRequest(t *testing.T) {
	w := record(func(c *gin.Context) {
		BadRequest(c, "File is empty")
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body ErrorBody
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "File is empty", body.Error)
}

func TestNotFound_DefaultMessage(t *testing.T) {
	w := record(func(c *gin.Context) {
		NotFound(c, "")
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
}

func TestServerError(t *testing.T) {
	w := record(func(c *gin.Context) {
		ServerError(c, "")
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}
