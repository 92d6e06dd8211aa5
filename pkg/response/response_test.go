package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestOKWithMeta(t *testing.T) {
	c, w := newContext()
	OK(c, []string{"a"}, map[string]interface{}{"count": 1})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	body := decode(t, w)
	assert.Equal(t, []interface{}{"a"}, body["data"])
	assert.Equal(t, map[string]interface{}{"count": float64(1)}, body["meta"])
	assert.NotContains(t, body, "error")
}

func TestCreated(t *testing.T) {
	c, w := newContext()
	Created(c, map[string]string{"id": "x"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, decode(t, w), "meta")
}

func TestErrorTypedAndUnknown(t *testing.T) {
	c, w := newContext()
	Error(c, appErrors.Clone(appErrors.ErrSlotUnavailable, "taken"))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, c.IsAborted())
	assert.Empty(t, c.Errors)
	errBody := decode(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "SLOT_UNAVAILABLE", errBody["code"])
	assert.Equal(t, "taken", errBody["message"])

	c, w = newContext()
	Error(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, c.Errors, 1)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Equal(t, "INTERNAL_ERROR", decode(t, w)["error"].(map[string]interface{})["code"])
}

func TestNoContent(t *testing.T) {
	c, w := newContext()
	NoContent(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
