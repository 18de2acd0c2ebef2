// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint. Errors
// always use the same envelope, with a stable code for programs and a
// caller-safe message for people:
//
//	HTTP/1.1 500 Internal Server Error
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "upstream_unavailable",
//	  "error": "Failed to get a prediction from the ML service."
//	}
//
// Internal detail (driver errors, upstream bodies) is logged, never written.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-premium-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"store_unavailable"`
	// Human-readable message, safe to show to users
	Error string `json:"error" example:"Failed to fetch prediction history."`
}

// fail aborts the request with an ErrorResponse. For 5xx, cause (when not
// nil) is logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string, cause ...error) {
	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code)
		if len(cause) > 0 && cause[0] != nil {
			ev = ev.Err(cause[0])
		}
		ev.Msg("api error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Error:     msg,
	})
}

// Fail is the exported variant of fail, used by router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
