package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError carries an API-facing code and message next to the HTTP status
// used to render it. Internal holds the underlying cause for logs only and
// is never serialized.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Internal != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	default:
		return e.Message
	}
}

// Unwrap makes the wrapped cause visible to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal clones the error and attaches a cause. Sentinels are shared
// package-level values, so mutating them in place is not an option.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	withCause := *e
	withCause.Internal = err
	return &withCause
}

// New builds an AppError from its parts.
func New(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

// Sentinels shared across handlers and services.
var (
	ErrUnauthorized       = New("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", "Invalid email or password", http.StatusUnauthorized)
	ErrAccountInactive    = New("ACCOUNT_INACTIVE", "Account has not been confirmed yet", http.StatusForbidden)
	ErrNotFound           = New("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrBadRequest         = New("BAD_REQUEST", "Invalid request", http.StatusBadRequest)
	ErrInternalServer     = New("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrRateLimit          = New("RATE_LIMIT_EXCEEDED", "Too many requests, please slow down", http.StatusTooManyRequests)
)

// Token verification failures surfaced by the confirmation endpoints. Each
// decode failure mode gets its own code so clients can tell a stale link
// from a corrupted one.
var (
	ErrTokenMalformed        = New("TOKEN_MALFORMED", "Confirmation token could not be decoded", http.StatusBadRequest)
	ErrTokenSignatureInvalid = New("TOKEN_SIGNATURE_INVALID", "Confirmation token failed verification", http.StatusBadRequest)
	ErrTokenPurposeMismatch  = New("TOKEN_PURPOSE_MISMATCH", "Token is not valid for this operation", http.StatusBadRequest)
	ErrTokenExpired          = New("TOKEN_EXPIRED", "Confirmation token has expired", http.StatusGone)
	ErrTokenAlreadyUsed      = New("TOKEN_ALREADY_USED", "Confirmation token has already been used or has expired", http.StatusConflict)
	ErrActivationPersist     = New("ACTIVATION_PERSIST_FAILED", "Account could not be activated, please request a new confirmation email", http.StatusInternalServerError)
	ErrNotificationSend      = New("NOTIFICATION_FAILED", "Confirmation email could not be sent", http.StatusInternalServerError)
)

// Wrap converts an arbitrary error into a 500 AppError, keeping the cause
// for the logs and message for the client.
func Wrap(err error, message string) *AppError {
	return New("INTERNAL_ERROR", message, http.StatusInternalServerError).WithInternal(err)
}

// FromError extracts an AppError from err, or masks it as ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest builds a 400 with a caller-supplied message, typically the
// rendered validation failures.
func NewBadRequest(message string) *AppError {
	return New(ErrBadRequest.Code, message, ErrBadRequest.StatusCode)
}
