package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/djhunter67/study-site/pkg/errors"
	"github.com/djhunter67/study-site/pkg/response"
	appValidator "github.com/djhunter67/study-site/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation.
// On failure an error response has already been written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	return validateBound(c, dest)
}

// bindRequest accepts either JSON or form-encoded payloads, negotiated by
// Content-Type. The registration endpoints take browser form posts as well
// as API clients, so both encodings must work.
func bindRequest[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBind(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid request payload"))
		return false
	}
	return validateBound(c, dest)
}

func validateBound[T any](c *gin.Context, dest *T) bool {
	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(describeFailures(err)))
		return false
	}
	return true
}

// describeFailures turns validator output into a message a client can act on.
func describeFailures(err error) string {
	ve, ok := err.(appValidator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return "invalid request payload"
	}

	parts := make([]string, len(ve))
	for i, failure := range ve {
		parts[i] = describeFailure(failure)
	}
	return strings.Join(parts, "; ")
}

func describeFailure(f appValidator.ValidationError) string {
	field := strings.ToLower(strings.ReplaceAll(f.Field, "_", " "))
	if field == "" {
		field = "field"
	}

	switch f.Tag {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, f.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, f.Param)
	}

	if f.Param != "" {
		return fmt.Sprintf("%s failed validation: %s=%s", field, f.Tag, f.Param)
	}
	return fmt.Sprintf("%s failed validation: %s", field, f.Tag)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return fallback
	}
	return parsed
}
