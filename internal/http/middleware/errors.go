package middleware

import "github.com/gin-gonic/gin"

// Error codes written by middleware. Handlers share the same envelope, see
// handlers.ErrorResponse.
const (
	codeInternal       = "internal_error"
	codeRateLimited    = "rate_limited"
	codeBadIdempotency = "bad_idempotency_key"
	codeAuthRequired   = "auth_required"
	codeAuthInvalid    = "auth_invalid"
)

// abort writes {request_id, code, error} with status and stops the chain.
func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"error":      msg,
	})
}
