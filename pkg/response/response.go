package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/djhunter67/study-site/pkg/errors"
)

// Response is the JSON envelope every endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Data    any `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo holds the client-safe portion of an error.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta describes pagination metadata.
type Meta struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	Total      int `json:"total,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
}

// Success writes a JSON success envelope.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Response{Success: true, Data: data})
}

// SuccessWithMeta writes a JSON success envelope with pagination metadata,
// filling in TotalPages when the caller left it zero.
func SuccessWithMeta(c *gin.Context, statusCode int, data any, meta *Meta) {
	if meta != nil && meta.TotalPages == 0 && meta.PerPage > 0 {
		meta.TotalPages = (meta.Total + meta.PerPage - 1) / meta.PerPage
	}
	c.JSON(statusCode, Response{Success: true, Data: data, Meta: meta})
}

// Error writes a JSON error envelope. Anything that is not an AppError is
// masked as a generic internal error so internals never leak to clients.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}
	appErr := appErrors.FromError(err)

	c.JSON(statusFor(appErr), Response{
		Success: false,
		Error:   &ErrorInfo{Code: appErr.Code, Message: appErr.Message},
	})
}

func statusFor(appErr *appErrors.AppError) int {
	if appErr.StatusCode == 0 {
		return http.StatusInternalServerError
	}
	return appErr.StatusCode
}
