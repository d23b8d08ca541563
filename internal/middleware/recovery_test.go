package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/djhunter67/study-site/pkg/response"
)

func serveExpectingEnvelope(t *testing.T, r *gin.Engine, path string) (int, response.Response) {
	t.Helper()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return w.Code, payload
}

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	code, payload := serveExpectingEnvelope(t, r, "/panic")
	require.Equal(t, http.StatusInternalServerError, code)
	require.False(t, payload.Success)
	require.Equal(t, "INTERNAL_SERVER_ERROR", payload.Error.Code)
	// The panic value must never reach the client.
	require.NotContains(t, payload.Error.Message, "boom")
}

func TestNotFoundHandlerEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.NoRoute(NotFoundHandler)

	code, payload := serveExpectingEnvelope(t, r, "/missing")
	require.Equal(t, http.StatusNotFound, code)
	require.False(t, payload.Success)
	require.Equal(t, "NOT_FOUND", payload.Error.Code)
	require.Contains(t, payload.Error.Message, "/missing")
}
