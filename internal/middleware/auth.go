package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aman-churiwal/hackathon-portal/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	AdminSubjectKey = "admin_subject"
	AdminEmailKey   = "admin_email"
)

// RequireAdmin validates the bearer token and requires the admin role.
func RequireAdmin(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format. Use: Bearer <token>",
			})
			return
		}

		claims, err := verifier.VerifyAdmin(parts[1])
		switch {
		case errors.Is(err, auth.ErrNotAdmin):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(AdminSubjectKey, claims.Subject)
		c.Set(AdminEmailKey, claims.Email)
		LogInfo(c.Request.Context(), "admin", claims.Subject)

		c.Next()
	}
}

// Reviewer names the signed-in admin for audit fields, preferring the email.
func Reviewer(c *gin.Context) string {
	if email := c.GetString(AdminEmailKey); email != "" {
		return email
	}
	return c.GetString(AdminSubjectKey)
}
