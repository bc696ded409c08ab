package problem

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
)

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Invalid("bad"), http.StatusBadRequest},
		{ItemNotFound("01J"), http.StatusNotFound},
		{Conflict("dup"), http.StatusConflict},
		{Unauthorized("who"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{Internal("oops"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", Invalid("bad")), http.StatusBadRequest},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToHTTPStatus(tt.err), tt.err.Error())
	}
}

func TestFrom_HidesInternalDetail(t *testing.T) {
	d := From(errors.New("dial tcp 10.0.0.1:3306: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, d.Status)
	assert.Equal(t, "An unexpected error occurred.", d.Detail)
	assert.NotContains(t, d.Detail, "10.0.0.1")
}

func TestWrite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Write(c, ItemNotFound("01HZX"))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var body Details
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Item with id 01HZX not found.", body.Detail)
	assert.Equal(t, "Not Found", body.Title)
	assert.Equal(t, CodeNotFound, body.Code)
	assert.Len(t, c.Errors, 1)
}
