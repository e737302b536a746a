package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusForbidden, "Access denied.")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "data")
	assert.Nil(t, body["data"])

	errBody := body["error"].(map[string]any)
	assert.EqualValues(t, 403, errBody["status"])
	assert.Equal(t, "ForbiddenError", errBody["name"])
	assert.Equal(t, "Access denied.", errBody["message"])
	assert.Equal(t, map[string]any{}, errBody["details"])
}

func TestErrorName(t *testing.T) {
	assert.Equal(t, "BadRequestError", ErrorName(http.StatusBadRequest))
	assert.Equal(t, "UnauthorizedError", ErrorName(http.StatusUnauthorized))
	assert.Equal(t, "InternalServerError", ErrorName(http.StatusInternalServerError))
	assert.Equal(t, "ApplicationError", ErrorName(http.StatusTeapot))
}
