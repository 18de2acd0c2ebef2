// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the request-id injector, the request-scoped logger and a
// panic-safe recovery handler:
//
//   - RequestID() reuses or mints an X-Request-ID, echoes it on the response,
//     and stores it both in the Gin context and in the request context so the
//     services below can forward it (outbound predictor calls, events).
//   - Logger() attaches a zerolog.Logger carrying request fields. It is stored
//     in the Gin context (LoggerFrom) and in the request context
//     (zerolog.Ctx), so services log with the same fields as handlers. The
//     access line itself is written by RedactingLogger.
//   - Recovery() turns panics into the standard JSON 500 envelope.
//
// Recommended order: RequestID, Logger, RedactingLogger, Recovery.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-premium-backend/internal/sysutil"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// loggerKey is the Gin context key of the request-scoped logger.
	loggerKey = "logger"
	// maxRequestIDLength bounds client-supplied ids; longer ones are replaced.
	maxRequestIDLength = 128
)

// RequestID attaches (or propagates) a correlation identifier per request.
// An incoming X-Request-ID is reused when present and reasonably short;
// otherwise a new UUIDv4 is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" || len(rid) > maxRequestIDLength {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Request = c.Request.WithContext(sysutil.WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}

// GetRequestID returns the id stored by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	return asString(v)
}

// Logger attaches a request-scoped logger with request_id, method and route.
// Place it after RequestID().
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		l := log.With().
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		setLogger(c, l)
		c.Next()
	}
}

// setLogger stores l in both the Gin context and the request context.
func setLogger(c *gin.Context, l zerolog.Logger) {
	c.Set(loggerKey, &l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
}

// Recovery intercepts panics, logs a stack trace, and returns a JSON 500
// error: { "request_id": "...", "code": "internal_error", "error": "..." }.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				if !c.Writer.Written() {
					abort(c, http.StatusInternalServerError, codeInternal, "internal server error")
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger, or a copy of the
// global logger when Logger() did not run. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// asString converts an arbitrary interface to a string, returning an empty
// string when the value is not a string. Used for context values.
func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
