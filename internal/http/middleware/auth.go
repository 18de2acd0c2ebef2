package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-premium-backend/internal/auth"
)

const (
	userIDKey   = "userID"
	identityKey = "identity"

	msgAuthRequired = "Authentication required: No token provided."
	msgAuthInvalid  = "Authentication failed: Invalid or expired token."
)

// Authenticate verifies the Authorization bearer token with v and stores the
// caller's identity in the Gin context. Requests without a usable token get
// 401; tokens that fail verification get 403. Anonymous sign-ins are refused
// with 403 unless allowAnonymous is set.
//
// On success the request-scoped logger is extended with user_id.
func Authenticate(v auth.Verifier, allowAnonymous bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			reject(c, http.StatusUnauthorized, codeAuthRequired, msgAuthRequired)
			return
		}

		id, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			LoggerFrom(c).Debug().Err(err).Msg("token rejected")
			if errors.Is(err, auth.ErrNoToken) {
				reject(c, http.StatusUnauthorized, codeAuthRequired, msgAuthRequired)
				return
			}
			reject(c, http.StatusForbidden, codeAuthInvalid, msgAuthInvalid)
			return
		}
		if id.State == auth.Anonymous && !allowAnonymous {
			LoggerFrom(c).Debug().Err(auth.ErrAnonymous).Msg("token rejected")
			reject(c, http.StatusForbidden, codeAuthInvalid, msgAuthInvalid)
			return
		}

		SetIdentity(c, id)
		setLogger(c, LoggerFrom(c).With().Str("user_id", id.Subject).Logger())
		c.Next()
	}
}

func reject(c *gin.Context, status int, code, msg string) {
	authRejected.WithLabelValues(code).Inc()
	abort(c, status, code, msg)
}

// SetIdentity records a verified identity for the rest of the chain.
func SetIdentity(c *gin.Context, id auth.Identity) {
	c.Set(userIDKey, id.Subject)
	c.Set(identityKey, id)
}

// UserID returns the verified subject stored by Authenticate, or "".
func UserID(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	return asString(v)
}

// IdentityFrom returns the identity stored by Authenticate. ok is false when
// the route is not behind Authenticate.
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
