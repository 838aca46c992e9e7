package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/benariet/SemScan-Project-sub001/internal/auth"
	"github.com/benariet/SemScan-Project-sub001/pkg/response"
)

const (
	// ContextUsername is the key for the presenter username in gin context.
	ContextUsername = "username"
	// ContextRole is the key for the presenter role in gin context.
	ContextRole = "role"
	// ContextEmail is the key for the presenter email in gin context.
	ContextEmail = "email"
)

// JWT returns a middleware that validates JWT and sets presenter claims in context.
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
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// Username returns the authenticated presenter username from the context.
func Username(c *gin.Context) string {
	return c.GetString(ContextUsername)
}
