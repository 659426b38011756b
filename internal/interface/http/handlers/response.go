package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ai-literacy/literacy-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// Response is the JSON envelope of every API response.
type Response struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error codes.
const (
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeUnavailable  = "service_unavailable"
	CodeInternal     = "internal_error"
	CodeBadRequest   = "invalid_request"
	CodeDisabled     = "feature_disabled"
)

// OK writes a successful envelope.
func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Response{
		Success:   true,
		Data:      data,
		RequestID: RequestIDFrom(c),
	})
}

// Fail writes an error envelope and aborts the chain.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		RequestID: RequestIDFrom(c),
	})
}

// FailWithDetails writes an error envelope with details and aborts the chain.
func FailWithDetails(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, Response{
		Success:   false,
		Error:     &APIError{Code: code, Message: message, Details: details},
		RequestID: RequestIDFrom(c),
	})
}

// RespondError translates an application error into an error envelope.
// Server errors are recorded on the context for the request logger and never
// leak their text to the client.
func RespondError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		Fail(c, status, code, http.StatusText(status))
		return
	}
	Fail(c, status, code, PublicMessage(err))
}

// StatusFor maps an error kind to an HTTP status and error code.
func StatusFor(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case shared.IsValidation(err):
		return http.StatusBadRequest, CodeValidation
	case shared.IsUnauthorized(err):
		return http.StatusUnauthorized, CodeUnauthorized
	case shared.IsNotFound(err):
		return http.StatusNotFound, CodeNotFound
	case shared.IsConflict(err):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, shared.ErrServiceUnavailable), errors.Is(err, shared.ErrTimeout):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// PublicMessage returns the client-facing text of an error: the message of
// the outermost domain error in the chain when there is one.
func PublicMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}
