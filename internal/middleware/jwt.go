package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/assesshub/backend/internal/auth"
	"github.com/assesshub/backend/pkg/response"
)

// ContextIdentity is the key for the resolved caller identity in gin context.
const ContextIdentity = "identity"

// JWT returns a middleware that validates the bearer token and places the
// caller's auth.Identity in the request context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		identity, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextIdentity, identity)
		c.Next()
	}
}

// IdentityFrom returns the caller identity set by the JWT middleware.
func IdentityFrom(c *gin.Context) *auth.Identity {
	return c.MustGet(ContextIdentity).(*auth.Identity)
}
