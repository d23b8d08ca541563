package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
)

// requestContext extracts the request-scoped context, tolerating the bare
// gin.Context values tests construct without an http.Request.
func requestContext(c *gin.Context) context.Context {
	if c != nil && c.Request != nil {
		return c.Request.Context()
	}
	return context.Background()
}
