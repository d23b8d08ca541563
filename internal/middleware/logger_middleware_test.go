package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djhunter67/study-site/pkg/logger"
)

func TestLoggerPassesRequestsThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, logger.Init("debug"))

	r := gin.New()
	r.Use(Logger())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.GET("/broken", func(c *gin.Context) {
		c.Status(http.StatusBadGateway)
	})

	for _, tc := range []struct {
		path string
		code int
		body string
	}{
		{path: "/ping", code: http.StatusOK, body: "pong"},
		{path: "/broken", code: http.StatusBadGateway},
		{path: "/missing", code: http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))

		assert.Equal(t, tc.code, w.Code, tc.path)
		if tc.body != "" {
			assert.Equal(t, tc.body, w.Body.String())
		}
	}
}
