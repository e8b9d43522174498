package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireToken rejects requests without a valid "Authorization: Bearer"
// token. WebSocket clients that cannot set headers may pass ?token= instead.
func RequireToken(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		claims, err := ValidateToken(secret, tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Set("subject", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if q := c.Query("token"); q != "" {
			return q, true
		}
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// RequireRole checks the role set by RequireToken.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get("role")
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Role not found in token"})
			c.Abort()
			return
		}

		if role != requiredRole {
			c.JSON(http.StatusForbidden, gin.H{
				"error":    "Insufficient permissions",
				"required": requiredRole,
				"current":  role,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin is a convenience function for requiring admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(RoleAdmin)
}
