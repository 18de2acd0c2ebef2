// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger. It writes one
// structured line per request with sensitive values scrubbed:
//
//   - bodies are never logged (feature payloads are health data)
//   - Authorization, Cookie and Set-Cookie are fully masked, plus any header
//     named in RedactOptions.MaskHeaders
//   - bearer tokens / JWTs, e-mail addresses, phone numbers and UUIDs are
//     pattern-redacted from the query string and the remaining headers
//
// The line is emitted through the request-scoped logger when Logger() ran,
// so it carries the same request_id as handler and service logs.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
type RedactOptions struct {
	// MaskHeaders lists extra header names (case-insensitive) whose values
	// are replaced with "[REDACTED]".
	MaskHeaders []string
}

var (
	jwtRE  = regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]*`)
	uuidRE = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	mailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so the hex groups of a UUID never match.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// redact scrubs s. Tokens go first, then UUIDs, then mail, then phone (the
// loosest pattern).
func redact(s string) string {
	if s == "" {
		return s
	}
	s = jwtRE.ReplaceAllString(s, "[REDACTED:token]")
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = mailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// RedactingLogger returns the access-log middleware. Level is info for 2xx/3xx,
// warn for 4xx and error for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		query := redact(c.Request.URL.RawQuery)

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = redact(strings.Join(vv, ", "))
		}

		c.Next()

		status := c.Writer.Status()
		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		_, scoped := c.Get(loggerKey)
		lg := LoggerFrom(c)
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = lg.Error()
		case status >= 400:
			ev = lg.Warn()
		default:
			ev = lg.Info()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}

		if !scoped {
			// Logger() did not run, so lg lacks these fields.
			ev = ev.Str("request_id", reqID).Str("method", c.Request.Method).Str("path", path)
		}
		if id, ok := IdentityFrom(c); ok {
			ev = ev.Stringer("auth", id.State)
		}
		ev.
			Str("user_id", UserID(c)).
			Str("query", query).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
