package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Nakkasenp65/register-item-delivery/pkg/jwt"
	"github.com/Nakkasenp65/register-item-delivery/pkg/response"
)

// LineUserIDKey context key holding the verified LINE user ID
const LineUserIDKey = "line_user_id"

// LIFFIdentity verifies an optional LIFF ID token.
// Without an Authorization header (or without a configured LIFF channel)
// the request continues anonymously, since the form can be opened outside
// the LINE webview. A header that does not verify is rejected. A verified token stores its subject under
// LineUserIDKey, which handlers prefer over any identifier in the request.
func LIFFIdentity(verifier *jwt.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || verifier == nil {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Unauthorized(c, 10002, "invalid authorization header")
			c.Abort()
			return
		}

		claims, err := verifier.Verify(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "invalid or expired LIFF ID token")
			c.Abort()
			return
		}

		c.Set(LineUserIDKey, claims.Subject)
		c.Next()
	}
}

// AdminKey staff endpoints: X-API-Key must match the configured key.
// An empty key disables the endpoints entirely.
func AdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			response.Forbidden(c, 10003, "admin endpoints are disabled")
			c.Abort()
			return
		}

		got := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			response.Unauthorized(c, 10002, "invalid API key")
			c.Abort()
			return
		}

		c.Next()
	}
}
